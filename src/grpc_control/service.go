package grpc_control

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"stock-simulator/src/interfaces"
	"stock-simulator/src/logger"
	"stock-simulator/src/models"
	"stock-simulator/src/updater"
)

// -----------------------------------------------------------------------------
// ControlService exposes operational control over the price updater: trigger
// a cycle out of schedule, pause and resume the scheduler, inspect state.
// -----------------------------------------------------------------------------

type ControlService struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Updater *updater.PriceUpdater
	Cache   interfaces.ICache
}

// -----------------------------------------------------------------------------

func NewControlService(
	cfg *models.MConfig,
	log *logger.Logger,
	upd *updater.PriceUpdater,
	cache interfaces.ICache,
) *ControlService {
	return &ControlService{
		Config:  cfg,
		Logger:  log,
		Updater: upd,
		Cache:   cache,
	}
}

// -----------------------------------------------------------------------------

// TriggerUpdate runs one update cycle immediately and returns its summary.
func (s *ControlService) TriggerUpdate(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Logger.Info("gRPC: manual update triggered")

	summary, err := s.Updater.UpdateNow(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "update cycle failed: %v", err)
	}
	return toStruct(summary)
}

// -----------------------------------------------------------------------------

// GetStatus reports the scheduler state and cache accounting.
func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.Cache.Stats()

	return toStruct(map[string]interface{}{
		"running":          s.Updater.IsRunning(),
		"cycles":           s.Updater.CycleCount(),
		"interval_seconds": s.Config.Updater.IntervalSeconds,
		"cache": map[string]interface{}{
			"size":         stats.Size,
			"memory_bytes": stats.MemoryBytes,
		},
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) StartUpdater(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Updater.IsRunning() {
		return toStruct(map[string]interface{}{"success": false, "message": "updater already running"})
	}

	if err := s.Updater.Start(context.Background()); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to start updater: %v", err)
	}
	s.Logger.Info("gRPC: updater started")
	return toStruct(map[string]interface{}{"success": true, "message": "updater started"})
}

// -----------------------------------------------------------------------------

func (s *ControlService) StopUpdater(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if !s.Updater.IsRunning() {
		return toStruct(map[string]interface{}{"success": false, "message": "updater not running"})
	}

	if err := s.Updater.Stop(); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to stop updater: %v", err)
	}
	s.Logger.Info("gRPC: updater stopped")
	return toStruct(map[string]interface{}{"success": true, "message": "updater stopped"})
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-serializable value into a proto Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to decode response: %v", err)
	}
	return structpb.NewStruct(m)
}

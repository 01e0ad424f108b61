package watermark

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tez-capital/tezsign-core/internal/encoding"
)

// Mirror publishes successful watermark commits to Redis for
// fleet-wide observability dashboards. It is never consulted by
// CheckAndCommit and never the source of truth: a mirror publish
// failure is logged and swallowed, never surfaced as a signing error,
// so it cannot weaken the durability invariant in spec.md §4.4.
type Mirror struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

func NewMirror(client *redis.Client, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{client: client, logger: logger, prefix: "tezsign:watermark:"}
}

type mirroredWatermark struct {
	PKH       string `json:"pkh"`
	Class     string `json:"class"`
	Level     uint32 `json:"level"`
	Round     uint32 `json:"round"`
	UpdatedAt int64  `json:"updated_at_unix"`
}

// Publish mirrors a single commit. Call it after Store.CheckAndCommit
// returns OutcomeOK (or OutcomeReplay, for dashboards that want to see
// replay traffic too) — never on the hot path's critical section, to
// keep Redis latency off the fsync boundary.
func (m *Mirror) Publish(ctx context.Context, pkh [20]byte, class Class, rec Record, now time.Time) {
	if m == nil || m.client == nil {
		return
	}

	tz4, err := encoding.Encode(encoding.PrefixPKH, pkh[:])
	if err != nil {
		m.logger.Warn("mirror: encode pkh failed", slog.Any("err", err))
		return
	}

	payload := mirroredWatermark{
		PKH:       tz4,
		Class:     class.String(),
		Level:     rec.Level,
		Round:     rec.Round,
		UpdatedAt: now.Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("mirror: marshal failed", slog.Any("err", err))
		return
	}

	field := class.String()
	if err := m.client.HSet(ctx, m.prefix+tz4, field, data).Err(); err != nil {
		m.logger.Warn("mirror: publish failed", slog.String("pkh", tz4), slog.Any("err", err))
	}
}

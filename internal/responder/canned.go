package responder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/cmlre/marine-platform/internal/auth"
)

type CannedConfig struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Canned answers from a fixed set of replies after a random delay.
type Canned struct {
	min, max time.Duration
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCanned creates a canned generator. A nil rng is seeded from the clock.
func NewCanned(cfg CannedConfig, rng *rand.Rand, logger *slog.Logger) *Canned {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Canned{min: cfg.MinLatency, max: cfg.MaxLatency, rng: rng, logger: logger}
}

func (c *Canned) Name() string { return "canned" }

func (c *Canned) Generate(ctx context.Context, text string, role auth.Role) (string, error) {
	replies := cannedReplies(text, role)
	delay, idx := c.pick(len(replies))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}

	c.logger.DebugContext(ctx, "canned reply", "index", idx, "delay", delay)
	return replies[idx], nil
}

func (c *Canned) pick(n int) (time.Duration, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delay := c.min
	if span := c.max - c.min; span > 0 {
		delay += time.Duration(c.rng.Int63n(int64(span)))
	}
	return delay, c.rng.Intn(n)
}

func cannedReplies(text string, role auth.Role) []string {
	return []string{
		fmt.Sprintf("I understand you're asking about \"%s\". Based on our marine database, I can help you analyze oceanographic patterns and species distribution data.", text),
		"That's an interesting question about marine ecology! Let me guide you through the relevant datasets and visualization tools available in our platform.",
		"मैं आपकी समुद्री डेटा के बारे में सवाल को समझ गया हूं। CMLRE प्लेटफॉर्म में कई विश्लेषण उपकरण उपलब्ध हैं।",
		fmt.Sprintf("Based on your role as %s, I can help you access the appropriate marine research tools and datasets. Would you like me to show you the data visualization dashboard?", role),
		"I can assist with data upload, species identification, molecular analysis, and generating reports. What specific marine research task would you like to work on?",
	}
}

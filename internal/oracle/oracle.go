// internal/oracle/oracle.go

// Package oracle turns page snapshots into ranked interaction suggestions by
// consulting an LLM. The oracle is advisory only: it never touches the page,
// and a failed analysis is a soft stop for the caller, not a fatal error.
package oracle

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/config"
	"github.com/xkilldash9x/doctrail/internal/llmutil"
)

// Oracle implements schemas.Oracle on top of an LLMClient.
type Oracle struct {
	client      schemas.LLMClient
	limiter     *rate.Limiter
	logger      *zap.Logger
	temperature float32
}

// New creates an Oracle. A requests-per-minute setting of 0 disables
// throttling.
func New(client schemas.LLMClient, cfg config.LLMConfig, logger *zap.Logger) *Oracle {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}
	return &Oracle{
		client:      client,
		limiter:     limiter,
		logger:      logger.Named("oracle"),
		temperature: cfg.Temperature,
	}
}

// Analyze asks the LLM which elements on the page look worth interacting
// with. It returns (nil, nil) when the model responded but nothing usable
// could be parsed out of it; the caller treats that as "no analysis".
func (o *Oracle) Analyze(ctx context.Context, pageContent string, snapshot schemas.PageSnapshot, iterationLabel string) (*schemas.PageAnalysis, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
		}
	}

	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(snapshot, ExtractText(pageContent), iterationLabel),
		Options: schemas.GenerationOptions{
			Temperature:     o.temperature,
			ForceJSONFormat: true,
		},
	}

	raw, err := o.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}

	analysis, err := llmutil.ParseJSONResponse[schemas.PageAnalysis](raw)
	if err != nil {
		o.logger.Warn("Could not parse LLM analysis, treating page as unanalyzable",
			zap.String("state", iterationLabel),
			zap.Error(err))
		return nil, nil
	}

	// Clamp out-of-range priorities rather than rejecting the whole verdict.
	for i := range analysis.Actions {
		if analysis.Actions[i].Priority < 1 {
			analysis.Actions[i].Priority = 1
		}
		if analysis.Actions[i].Priority > 5 {
			analysis.Actions[i].Priority = 5
		}
	}

	o.logger.Debug("Page analysis complete",
		zap.String("state", iterationLabel),
		zap.Int("suggested_actions", len(analysis.Actions)))

	return analysis, nil
}

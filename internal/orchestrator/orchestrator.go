// Package orchestrator implements C3, the fallback orchestrator: given a
// ServiceKind and an ordered provider chain, it executes an operation
// against each provider in turn until one succeeds, classifying errors as
// transient (try next), non-transient (short-circuit), or policy-blocked
// (try next, and if the whole chain refuses, surface AllRefused).
//
// Grounded on original_source/src/ai/manager.py's execute_with_fallback,
// with one deliberate divergence: the Python version catches a bare
// Exception and always continues to the next provider. This package
// implements the stricter split the spec requires instead (see
// DESIGN.md "Fallback orchestrator error classification").
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faceless-engine/synthesizer/internal/logger"
	"github.com/faceless-engine/synthesizer/internal/metrics"
	"github.com/faceless-engine/synthesizer/internal/pipelineerr"
	"github.com/faceless-engine/synthesizer/internal/providers/contracts"
	"github.com/faceless-engine/synthesizer/internal/registry"
)

// Orchestrator holds one ordered fallback chain per ServiceKind and
// executes operations against C1's ServiceManager.
type Orchestrator struct {
	manager *registry.ServiceManager
	log     logger.Logger
	chains  map[contracts.ServiceKind][]contracts.ProviderID
}

func New(manager *registry.ServiceManager, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		manager: manager,
		log:     log,
		chains:  make(map[contracts.ServiceKind][]contracts.ProviderID),
	}
}

// SetFallbackChain declares the ordered provider chain for kind. An empty
// chain means "default provider only" per spec §4.3.
func (o *Orchestrator) SetFallbackChain(kind contracts.ServiceKind, chain []contracts.ProviderID) {
	o.chains[kind] = chain
}

func (o *Orchestrator) chainFor(kind contracts.ServiceKind) []contracts.ProviderID {
	if chain, ok := o.chains[kind]; ok && len(chain) > 0 {
		return chain
	}
	return []contracts.ProviderID{""} // "" resolves to the kind's configured default in C1
}

// Result wraps a successful response with the provider that produced it.
type Result[T any] struct {
	Response     T
	ProviderUsed contracts.ProviderID
}

// classify maps an error to a pipelineerr.Kind for fallback decisions.
// Non-pipelineerr errors (e.g. a bare network error bubbling from an
// adapter that forgot to wrap it) are treated as Transient — a provider
// adapter's failure to classify its own error should not accidentally make
// the whole chain non-retryable.
func classify(err error) pipelineerr.Kind {
	var pe *pipelineerr.Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return pipelineerr.Transient
}

// ExecuteText runs op against the text provider chain.
func (o *Orchestrator) ExecuteText(ctx context.Context, op func(contracts.TextService) (contracts.TextResponse, error)) (Result[contracts.TextResponse], error) {
	var lastErr error
	allPolicyBlocked := true
	attempts := 0
	chain := o.chainFor(contracts.KindText)
	for _, p := range chain {
		svc, err := o.manager.GetText(p)
		if err != nil {
			lastErr = err
			if classify(err) != pipelineerr.Transient {
				return Result[contracts.TextResponse]{}, err
			}
			continue
		}
		attempts++
		started := time.Now()
		resp, err := op(svc)
		if err == nil {
			metrics.RecordProviderCall("text", string(svc.ProviderID()), "success", time.Since(started).Seconds())
			metrics.RecordFallbackDepth("text", attempts)
			return Result[contracts.TextResponse]{Response: resp, ProviderUsed: svc.ProviderID()}, nil
		}
		metrics.RecordProviderCall("text", string(svc.ProviderID()), "failure", time.Since(started).Seconds())
		lastErr = err
		kind := classify(err)
		if kind != pipelineerr.PolicyBlocked {
			allPolicyBlocked = false
		}
		if kind == pipelineerr.Transient || kind == pipelineerr.PolicyBlocked {
			o.log.Warnf("text provider %q failed (%s), trying next", svc.ProviderID(), kind)
			continue
		}
		return Result[contracts.TextResponse]{}, err
	}
	metrics.RecordFallbackDepth("text", attempts)
	return Result[contracts.TextResponse]{}, o.exhausted("text", allPolicyBlocked, lastErr)
}

// ExecuteImage runs op against the image provider chain.
func (o *Orchestrator) ExecuteImage(ctx context.Context, op func(contracts.ImageService) (contracts.ImageResponse, error)) (Result[contracts.ImageResponse], error) {
	var lastErr error
	allPolicyBlocked := true
	attempts := 0
	chain := o.chainFor(contracts.KindImage)
	for _, p := range chain {
		svc, err := o.manager.GetImage(p)
		if err != nil {
			lastErr = err
			if classify(err) != pipelineerr.Transient {
				return Result[contracts.ImageResponse]{}, err
			}
			continue
		}
		attempts++
		started := time.Now()
		resp, err := op(svc)
		if err == nil {
			metrics.RecordProviderCall("image", string(svc.ProviderID()), "success", time.Since(started).Seconds())
			metrics.RecordFallbackDepth("image", attempts)
			return Result[contracts.ImageResponse]{Response: resp, ProviderUsed: svc.ProviderID()}, nil
		}
		metrics.RecordProviderCall("image", string(svc.ProviderID()), "failure", time.Since(started).Seconds())
		lastErr = err
		kind := classify(err)
		if kind != pipelineerr.PolicyBlocked {
			allPolicyBlocked = false
		}
		if kind == pipelineerr.Transient || kind == pipelineerr.PolicyBlocked {
			o.log.Warnf("image provider %q failed (%s), trying next", svc.ProviderID(), kind)
			continue
		}
		return Result[contracts.ImageResponse]{}, err
	}
	metrics.RecordFallbackDepth("image", attempts)
	return Result[contracts.ImageResponse]{}, o.exhausted("image", allPolicyBlocked, lastErr)
}

// ExecuteSpeech runs op against the speech provider chain.
func (o *Orchestrator) ExecuteSpeech(ctx context.Context, op func(contracts.SpeechService) (contracts.SpeechResponse, error)) (Result[contracts.SpeechResponse], error) {
	var lastErr error
	allPolicyBlocked := true
	attempts := 0
	chain := o.chainFor(contracts.KindSpeech)
	for _, p := range chain {
		svc, err := o.manager.GetSpeech(p)
		if err != nil {
			lastErr = err
			if classify(err) != pipelineerr.Transient {
				return Result[contracts.SpeechResponse]{}, err
			}
			continue
		}
		attempts++
		started := time.Now()
		resp, err := op(svc)
		if err == nil {
			metrics.RecordProviderCall("speech", string(svc.ProviderID()), "success", time.Since(started).Seconds())
			metrics.RecordFallbackDepth("speech", attempts)
			return Result[contracts.SpeechResponse]{Response: resp, ProviderUsed: svc.ProviderID()}, nil
		}
		metrics.RecordProviderCall("speech", string(svc.ProviderID()), "failure", time.Since(started).Seconds())
		lastErr = err
		kind := classify(err)
		if kind != pipelineerr.PolicyBlocked {
			allPolicyBlocked = false
		}
		if kind == pipelineerr.Transient || kind == pipelineerr.PolicyBlocked {
			o.log.Warnf("speech provider %q failed (%s), trying next", svc.ProviderID(), kind)
			continue
		}
		return Result[contracts.SpeechResponse]{}, err
	}
	metrics.RecordFallbackDepth("speech", attempts)
	return Result[contracts.SpeechResponse]{}, o.exhausted("speech", allPolicyBlocked, lastErr)
}

// ExecuteVideo runs op against the video provider chain. Before invoking a
// provider it consults Capabilities(); a provider that cannot satisfy req
// is skipped without counting as a failure, per spec §4.3.
func (o *Orchestrator) ExecuteVideo(ctx context.Context, req contracts.VideoRequest, op func(contracts.VideoService) (contracts.VideoResponse, error)) (Result[contracts.VideoResponse], error) {
	var lastErr error
	allPolicyBlocked := true
	anyAttempted := false
	attempts := 0
	chain := o.chainFor(contracts.KindVideo)
	for _, p := range chain {
		svc, err := o.manager.GetVideo(p)
		if err != nil {
			lastErr = err
			if classify(err) != pipelineerr.Transient {
				return Result[contracts.VideoResponse]{}, err
			}
			continue
		}

		caps := svc.Capabilities()
		if req.DurationS > caps.MaxDuration && caps.MaxDuration > 0 {
			o.log.Debugf("video provider %q skipped: duration %.1fs exceeds max %.1fs", svc.ProviderID(), req.DurationS, caps.MaxDuration)
			continue
		}
		if req.Style != "" && !caps.SupportsStyle(req.Style) {
			o.log.Debugf("video provider %q skipped: style %q unsupported", svc.ProviderID(), req.Style)
			continue
		}

		anyAttempted = true
		attempts++
		started := time.Now()
		resp, err := op(svc)
		if err == nil {
			metrics.RecordProviderCall("video", string(svc.ProviderID()), "success", time.Since(started).Seconds())
			metrics.RecordFallbackDepth("video", attempts)
			return Result[contracts.VideoResponse]{Response: resp, ProviderUsed: svc.ProviderID()}, nil
		}
		metrics.RecordProviderCall("video", string(svc.ProviderID()), "failure", time.Since(started).Seconds())
		lastErr = err
		kind := classify(err)
		if kind != pipelineerr.PolicyBlocked {
			allPolicyBlocked = false
		}
		if kind == pipelineerr.Transient || kind == pipelineerr.PolicyBlocked {
			o.log.Warnf("video provider %q failed (%s), trying next", svc.ProviderID(), kind)
			continue
		}
		return Result[contracts.VideoResponse]{}, err
	}
	if !anyAttempted {
		return Result[contracts.VideoResponse]{}, pipelineerr.New(pipelineerr.NoProvider, "video", fmt.Errorf("no registered video provider supports the request"))
	}
	metrics.RecordFallbackDepth("video", attempts)
	return Result[contracts.VideoResponse]{}, o.exhausted("video", allPolicyBlocked, lastErr)
}

// exhausted produces the chain-exhausted error: AllRefused if every attempt
// was PolicyBlocked, AllFailed otherwise, always carrying the last error.
func (o *Orchestrator) exhausted(stage string, allPolicyBlocked bool, lastErr error) error {
	if lastErr == nil {
		return pipelineerr.New(pipelineerr.NoProvider, stage, fmt.Errorf("no providers configured"))
	}
	if allPolicyBlocked {
		return pipelineerr.New(pipelineerr.AllRefused, stage, lastErr)
	}
	return pipelineerr.New(pipelineerr.AllFailed, stage, lastErr)
}

package monitor

import (
	"context"
	"fmt"

	"textmacro-go/domain/region"
)

// ProbeResult is the outcome of a one-shot region check.
type ProbeResult struct {
	Region         string
	Text           string
	ComparisonText string
	Decision       region.Decision
}

// Probe captures and recognizes a single region once and evaluates it
// without running its actions. It works whether or not the monitor is running.
func (m *Monitor) Probe(ctx context.Context, r region.Region) (ProbeResult, error) {
	res := ProbeResult{Region: r.Name}
	if err := r.Validate(); err != nil {
		return res, err
	}

	text, err := m.probeText(ctx, r.Rect)
	if err != nil {
		return res, &RegionError{Region: r.Name, Stage: err.stage, Err: err.err}
	}
	res.Text = text

	if r.CompareEnabled {
		cmp, err := m.probeText(ctx, *r.CompareRegion)
		if err != nil {
			stage := StageCompareCapture
			if err.stage == StageRecognize {
				stage = StageCompareRecognize
			}
			return res, &RegionError{Region: r.Name, Stage: stage, Err: err.err}
		}
		res.ComparisonText = cmp
	}

	res.Decision = region.Decide(res.Text, &r, res.ComparisonText)
	m.logger.Info("Region probed",
		"region", r.Name,
		"text", res.Text,
		"comparison", res.ComparisonText,
		"triggered", res.Decision.Triggered)
	return res, nil
}

type probeError struct {
	stage Stage
	err   error
}

func (m *Monitor) probeText(ctx context.Context, rect region.Rect) (string, *probeError) {
	img, err := m.cfg.Capture.Capture(ctx, rect)
	if err != nil {
		return "", &probeError{stage: StageCapture, err: fmt.Errorf("capture %s: %w", rect, err)}
	}
	text, err := m.cfg.Recognizer.Recognize(ctx, img, m.cfg.Language)
	if err != nil {
		return "", &probeError{stage: StageRecognize, err: err}
	}
	return text, nil
}

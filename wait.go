package printpal

import (
	"context"
	"fmt"
	"time"
)

// GetStatus fetches the current lifecycle state of a generation.
func (c *Client) GetStatus(ctx context.Context, uid string) (*GenerationStatus, error) {
	path, err := generationPath(uid, "status")
	if err != nil {
		return nil, err
	}
	data, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	status := parseGenerationStatus(data)
	if status.GenerationUID == "" {
		status.GenerationUID = uid
	}
	return &status, nil
}

// WaitOptions tunes WaitForCompletion.
type WaitOptions struct {
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Timeout bounds the whole wait. Zero derives it from the quality reported
	// by the first status response (see Quality.WaitTimeout).
	Timeout time.Duration
	// OnStatus is called with every status snapshot, including the first.
	// A returned error aborts the wait and is passed back unchanged.
	OnStatus func(GenerationStatus) error
}

// WaitForCompletion polls until the generation completes, fails or the
// timeout elapses. A failed generation yields a KindGeneration error and an
// expired deadline a KindTimeout error; neither is retried.
func (c *Client) WaitForCompletion(ctx context.Context, uid string, opts WaitOptions) (*GenerationStatus, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	start := c.now()

	status, err := c.GetStatus(ctx, uid)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		quality := status.Quality
		if quality == "" {
			quality = string(QualityDefault)
		}
		timeout = Quality(quality).WaitTimeout()
	}
	logger := c.logger.With("generation_uid", uid)
	logger.Debug("waiting for generation", "timeout", timeout, "poll_interval", interval)

	for {
		if opts.OnStatus != nil {
			if err := opts.OnStatus(*status); err != nil {
				return nil, err
			}
		}

		switch {
		case status.IsCompleted():
			logger.Info("generation completed", "elapsed", c.now().Sub(start).Round(time.Second))
			return status, nil
		case status.IsFailed():
			return nil, &Error{
				Kind:          KindGeneration,
				Message:       "generation failed",
				GenerationUID: uid,
				Response:      status.Raw,
			}
		}

		if elapsed := c.now().Sub(start); elapsed >= timeout {
			return nil, &Error{
				Kind:          KindTimeout,
				Message:       fmt.Sprintf("generation did not complete within %s", timeout),
				GenerationUID: uid,
			}
		}

		logger.Debug("generation in progress", "status", status.Status, "external_state", status.ExternalState)
		if err := c.sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("printpal: wait for %s: %w", uid, err)
		}
		if status, err = c.GetStatus(ctx, uid); err != nil {
			return nil, err
		}
	}
}

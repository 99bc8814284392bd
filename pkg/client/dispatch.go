package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Dispatch sends requests in contiguous groups of at most BatchSize,
// pausing BatchPause between groups to throttle the remote service. Within
// a group every request is issued concurrently and the group joins before
// the next begins.
//
// After all groups return, responses matching the transient-failure
// signature are re-dispatched with a depth-squared backoff (depth 1 waits
// 1×unit, depth 2 waits 4×unit, ...) until none remain or MaxRetryDepth is
// reached. Retried responses land back at their original index, so the
// returned slice always corresponds 1:1 with the input.
//
// Ordinary HTTP error statuses are never turned into errors here; they come
// back as responses for the caller to classify. The returned error is
// limited to context cancellation.
func (c *Client) Dispatch(ctx context.Context, reqs []Request) ([]Response, error) {
	responses := make([]Response, len(reqs))
	if len(reqs) == 0 {
		return responses, nil
	}

	pending := make([]int, len(reqs))
	for i := range reqs {
		pending[i] = i
	}

	for depth := 0; ; depth++ {
		if depth > 0 {
			backoff := time.Duration(depth*depth) * c.config.RetryBackoffUnit
			apiRetryBackoffSeconds.Observe(backoff.Seconds())
			c.logger.Debug().
				Int("retry_depth", depth).
				Dur("backoff", backoff).
				Msg("Waiting before transient retry round")
			if err := c.sleep(ctx, backoff); err != nil {
				return responses, err
			}
		}

		if err := c.sendGroups(ctx, reqs, pending, responses, depth); err != nil {
			return responses, err
		}

		var retries []int
		for _, idx := range pending {
			if c.config.Classify(responses[idx]) == ClassTransient {
				retries = append(retries, idx)
			}
		}
		if len(retries) == 0 {
			return responses, nil
		}
		if depth >= c.config.MaxRetryDepth {
			// Ceiling reached: the last observed failing responses stay in
			// place as final results.
			apiRetryExhaustedTotal.Add(float64(len(retries)))
			c.logger.Warn().
				Int("count", len(retries)).
				Int("max_retry_depth", c.config.MaxRetryDepth).
				Msg("Transient retries exhausted")
			return responses, nil
		}

		apiRetriesTotal.Add(float64(len(retries)))
		msg := fmt.Sprintf("%d entries failed due to connection timeout, retrying...", len(retries))
		c.notifier.Alert(msg)
		c.logger.Warn().
			Int("count", len(retries)).
			Int("retry_depth", depth+1).
			Msg("Retrying transient failures")
		pending = retries
	}
}

// sendGroups dispatches the pending indices in batch-sized groups. Progress
// notifications go out only on the first attempt, not on retry rounds.
func (c *Client) sendGroups(ctx context.Context, reqs []Request, pending []int, responses []Response, depth int) error {
	groups := (len(pending) + c.config.BatchSize - 1) / c.config.BatchSize
	for g := 0; g < groups; g++ {
		if depth == 0 {
			c.notifier.Alert(fmt.Sprintf("Posting batch %d of %d", g+1, groups))
			c.logger.Info().
				Int("batch", g+1).
				Int("batches", groups).
				Msg("Posting batch")
		}

		lo := g * c.config.BatchSize
		hi := min(lo+c.config.BatchSize, len(pending))
		c.fanOut(ctx, reqs, pending[lo:hi], responses)
		apiBatchesTotal.Inc()

		// Throttle between groups only; never before the first or after the
		// last.
		if g < groups-1 {
			if err := c.sleep(ctx, c.config.BatchPause); err != nil {
				return err
			}
		}
	}
	return nil
}

// fanOut issues one group's requests concurrently and waits for all of them.
// Every goroutine writes only its own index, so no locking is needed.
func (c *Client) fanOut(ctx context.Context, reqs []Request, indices []int, responses []Response) {
	var wg sync.WaitGroup
	for _, idx := range indices {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			responses[idx] = c.send(ctx, idx, reqs[idx])
		}(idx)
	}
	wg.Wait()
}

// send executes one request and captures its result. Transport failures are
// recorded with a zero status code rather than escalated.
func (c *Client) send(ctx context.Context, idx int, req Request) Response {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return Response{Index: idx, Body: []byte(err.Error())}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	apiRequestDuration.WithLabelValues(req.Path).Observe(time.Since(start).Seconds())
	if err != nil {
		apiRequestsTotal.WithLabelValues(req.Path, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", req.Path).Msg("Request transport failure")
		return Response{Index: idx, Body: []byte(err.Error())}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		body = []byte(err.Error())
	}
	apiRequestsTotal.WithLabelValues(req.Path, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("endpoint", req.Path).
		Int("status", resp.StatusCode).
		Msg("Request complete")
	return Response{Index: idx, StatusCode: resp.StatusCode, Body: body}
}

// Package queue carries blur jobs and their results over Redis streams.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"go-gblur/pkg/common"
)

const (
	workersGroup      = "workers"
	coordinatorsGroup = "coordinators"
	statusTTL         = 24 * time.Hour
)

// Client is a Redis-backed job queue. Jobs and results live in two streams,
// each consumed through its own consumer group.
type Client struct {
	client *redis.Client
	prefix string
}

// NewClient connects to the Redis server at addr. Stream and key names are
// prefixed with prefix, "gblur" if empty.
func NewClient(ctx context.Context, addr, prefix string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(client, prefix), nil
}

func newClient(client *redis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "gblur"
	}
	return &Client{client: client, prefix: prefix}
}

// Close closes the underlying Redis connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) jobsStream() string    { return c.prefix + ":jobs" }
func (c *Client) resultsStream() string { return c.prefix + ":results" }

func (c *Client) statusKey(jobID string) string {
	return fmt.Sprintf("%s:job:%s:status", c.prefix, jobID)
}

// EnsureGroups creates both streams and their consumer groups. Groups that
// already exist are left alone.
func (c *Client) EnsureGroups(ctx context.Context) error {
	for stream, group := range map[string]string{
		c.jobsStream():    workersGroup,
		c.resultsStream(): coordinatorsGroup,
	} {
		err := c.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
		if err != nil && !isBusyGroup(err) {
			return fmt.Errorf("create group %s on %s: %w", group, stream, err)
		}
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// AddJob appends job to the jobs stream and returns its message ID.
func (c *Client) AddJob(ctx context.Context, job *common.JobMessage) (string, error) {
	return c.add(ctx, c.jobsStream(), job)
}

// AddResult appends res to the results stream and returns its message ID.
func (c *Client) AddResult(ctx context.Context, res *common.ResultMessage) (string, error) {
	return c.add(ctx, c.resultsStream(), res)
}

func (c *Client) add(ctx context.Context, stream string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": b},
	}).Result()
}

// ReadJob blocks up to block for the next job. It returns a nil job when
// none arrived in time.
func (c *Client) ReadJob(ctx context.Context, consumer string, block time.Duration) (string, *common.JobMessage, error) {
	var job common.JobMessage
	id, ok, err := c.read(ctx, c.jobsStream(), workersGroup, consumer, block, &job)
	if !ok || err != nil {
		return id, nil, err
	}
	return id, &job, nil
}

// AckJob acknowledges the job message id so it is not redelivered.
func (c *Client) AckJob(ctx context.Context, id string) error {
	return c.client.XAck(ctx, c.jobsStream(), workersGroup, id).Err()
}

// ReadResult blocks up to block for the next result. It returns a nil
// result when none arrived in time.
func (c *Client) ReadResult(ctx context.Context, consumer string, block time.Duration) (string, *common.ResultMessage, error) {
	var res common.ResultMessage
	id, ok, err := c.read(ctx, c.resultsStream(), coordinatorsGroup, consumer, block, &res)
	if !ok || err != nil {
		return id, nil, err
	}
	return id, &res, nil
}

// AckResult acknowledges the result message id.
func (c *Client) AckResult(ctx context.Context, id string) error {
	return c.client.XAck(ctx, c.resultsStream(), coordinatorsGroup, id).Err()
}

func (c *Client) read(ctx context.Context, stream, group, consumer string, block time.Duration, v any) (string, bool, error) {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(result) == 0 || len(result[0].Messages) == 0 {
		return "", false, nil
	}

	msg := result[0].Messages[0]
	if err := json.Unmarshal(bytesFromAny(msg.Values["data"]), v); err != nil {
		return msg.ID, false, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return msg.ID, true, nil
}

// SetStatus records the state of a job. Status keys expire after a day.
func (c *Client) SetStatus(ctx context.Context, jobID, status string) error {
	return c.client.Set(ctx, c.statusKey(jobID), status, statusTTL).Err()
}

// Status returns the recorded state of a job, or "" if none is known.
func (c *Client) Status(ctx context.Context, jobID string) (string, error) {
	s, err := c.client.Get(ctx, c.statusKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return s, err
}

// ClaimStaleJobs moves up to count jobs that were delivered to another
// consumer but not acknowledged within minIdle over to consumer, and
// returns them for processing.
func (c *Client) ClaimStaleJobs(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]Delivery, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.jobsStream(),
		Group:  workersGroup,
		Idle:   minIdle,
		Count:  int64(count),
		Start:  "-",
		End:    "+",
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.jobsStream(),
		Group:    workersGroup,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Delivery, 0, len(claimed))
	for _, msg := range claimed {
		var job common.JobMessage
		if err := json.Unmarshal(bytesFromAny(msg.Values["data"]), &job); err != nil {
			// Acknowledge garbage so it is not reclaimed forever.
			_ = c.AckJob(ctx, msg.ID)
			continue
		}
		out = append(out, Delivery{ID: msg.ID, Job: &job})
	}
	return out, nil
}

// Delivery is a job together with its stream message ID.
type Delivery struct {
	ID  string
	Job *common.JobMessage
}

// bytesFromAny handles Redis returning either string or []byte.
func bytesFromAny(v any) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		b, _ := json.Marshal(t)
		return b
	}
}

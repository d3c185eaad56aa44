package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-pos/internal/metrics"
)

const dateLayout = "2006-01-02"

// Outcome classifies how a gateway operation went across both stores.
type Outcome string

const (
	// OutcomeOK: every store involved succeeded.
	OutcomeOK Outcome = "ok"
	// OutcomeDegraded: one side failed or the remote is not configured, but
	// the operation still took effect somewhere.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed: nothing was stored or read.
	OutcomeFailed Outcome = "failed"
)

// Source tells where a read was served from.
type Source string

const (
	SourceNone   Source = ""
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceCache  Source = "cache" // served from a component's in-memory copy
)

// Result is the structured report of a gateway call.  Callers treat
// anything but OutcomeFailed as success; Degraded exists so the UI can
// surface a notice and tests can observe the fallback.
type Result struct {
	Outcome   Outcome
	Source    Source
	RemoteErr error
	LocalErr  error
}

// OK reports whether both stores were used successfully.
func (r Result) OK() bool { return r.Outcome == OutcomeOK }

// Failed reports whether neither store served the operation.
func (r Result) Failed() bool { return r.Outcome == OutcomeFailed }

// Err joins the per-store errors, or nil when there were none.
func (r Result) Err() error { return errors.Join(r.RemoteErr, r.LocalErr) }

// Worst folds several results into the least healthy one.  Errors of the
// first result with each outcome are kept.
func Worst(results ...Result) Result {
	rank := map[Outcome]int{OutcomeOK: 0, OutcomeDegraded: 1, OutcomeFailed: 2}
	out := Result{Outcome: OutcomeOK}
	for _, r := range results {
		if r.Outcome == "" {
			continue
		}
		if rank[r.Outcome] > rank[out.Outcome] {
			out = r
		}
	}
	return out
}

// Gateway writes to the remote store first and the local store always, and
// reads from the remote store with the local store as fallback.  There is
// no retry queue: a write the remote missed stays missing remotely.
type Gateway struct {
	remote  DocumentStore
	local   LocalStore
	timeout time.Duration
	log     *zap.Logger

	mu sync.Mutex // serializes read-modify-write of local buckets
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithRemoteTimeout bounds every remote call.  A call that exceeds it is
// treated as a remote failure and served locally.
func WithRemoteTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithLogger sets the logger used for remote and local failures.
func WithLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGateway composes the stores.  remote may be nil when no remote store is
// configured; local is required.
func NewGateway(remote DocumentStore, local LocalStore, opts ...GatewayOption) *Gateway {
	if local == nil {
		panic("nil local store passed to NewGateway")
	}
	g := &Gateway{remote: remote, local: local, log: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RemoteConfigured reports whether a remote store is attached.
func (g *Gateway) RemoteConfigured() bool { return g.remote != nil }

// Write stores v under key in both stores.  status is indexed remotely so
// queries can filter on it.
func (g *Gateway) Write(ctx context.Context, c Collection, key Key, status string, v interface{}) Result {
	body, err := json.Marshal(v)
	if err != nil {
		err = fmt.Errorf("encode %s/%s: %w", c.Name, key.ID, err)
		return g.finish("write", c, key, err, err, SourceNone)
	}
	remoteErr := g.callRemote(ctx, func(ctx context.Context) error {
		return g.remote.Put(ctx, c.Name, Document{
			ID: key.ID, Date: key.Date, Status: status, Body: body, UpdatedAt: time.Now().UTC(),
		})
	})
	localErr := g.writeLocal(ctx, c, key, body)
	return g.finish("write", c, key, remoteErr, localErr, SourceNone)
}

// Delete removes key from both stores.
func (g *Gateway) Delete(ctx context.Context, c Collection, key Key) Result {
	remoteErr := g.callRemote(ctx, func(ctx context.Context) error {
		return g.remote.Delete(ctx, c.Name, key.ID)
	})
	localErr := g.deleteLocal(ctx, c, key)
	return g.finish("delete", c, key, remoteErr, localErr, SourceNone)
}

// Read decodes the document at key into out.  A remote "not found" is
// authoritative; any other remote failure falls back to the local copy.
func (g *Gateway) Read(ctx context.Context, c Collection, key Key, out interface{}) (bool, Result) {
	var remoteErr error
	if g.remote == nil {
		remoteErr = ErrConfigurationMissing
	} else {
		var doc Document
		err := g.callRemote(ctx, func(ctx context.Context) error {
			var err error
			doc, err = g.remote.Get(ctx, c.Name, key.ID)
			return err
		})
		switch {
		case err == nil:
			uerr := json.Unmarshal(doc.Body, out)
			if uerr == nil {
				return true, g.finish("read", c, key, nil, nil, SourceRemote)
			}
			remoteErr = fmt.Errorf("%w: decode %s/%s: %v", ErrRemoteUnavailable, c.Name, key.ID, uerr)
		case errors.Is(err, ErrNotFound):
			return false, g.finish("read", c, key, nil, nil, SourceRemote)
		default:
			remoteErr = err
		}
	}
	found, localErr := g.readLocal(ctx, c, key, out)
	return found, g.finish("read", c, key, remoteErr, localErr, SourceLocal)
}

// Query returns the raw JSON bodies of every document matching f, newest
// date first.
func (g *Gateway) Query(ctx context.Context, c Collection, f Filter) ([]json.RawMessage, Result) {
	var remoteErr error
	if g.remote == nil {
		remoteErr = ErrConfigurationMissing
	} else {
		var docs []Document
		remoteErr = g.callRemote(ctx, func(ctx context.Context) error {
			var err error
			docs, err = g.remote.Query(ctx, c.Name, f)
			return err
		})
		if remoteErr == nil {
			out := make([]json.RawMessage, 0, len(docs))
			for _, d := range docs {
				out = append(out, json.RawMessage(d.Body))
			}
			return out, g.finish("query", c, Key{}, nil, nil, SourceRemote)
		}
	}
	out, localErr := g.queryLocal(ctx, c, f)
	return out, g.finish("query", c, Key{}, remoteErr, localErr, SourceLocal)
}

// Latest decodes the most recently written document of c into out.  The
// local fallback is the collection's LatestKey.
func (g *Gateway) Latest(ctx context.Context, c Collection, out interface{}) (bool, Result) {
	var remoteErr error
	if g.remote == nil {
		remoteErr = ErrConfigurationMissing
	} else {
		var doc Document
		err := g.callRemote(ctx, func(ctx context.Context) error {
			var err error
			doc, err = g.remote.Latest(ctx, c.Name)
			return err
		})
		switch {
		case err == nil:
			uerr := json.Unmarshal(doc.Body, out)
			if uerr == nil {
				return true, g.finish("latest", c, Key{}, nil, nil, SourceRemote)
			}
			remoteErr = fmt.Errorf("%w: decode latest %s: %v", ErrRemoteUnavailable, c.Name, uerr)
		case errors.Is(err, ErrNotFound):
			return false, g.finish("latest", c, Key{}, nil, nil, SourceRemote)
		default:
			remoteErr = err
		}
	}
	var (
		found    bool
		localErr error
	)
	if c.LatestKey != "" {
		found, localErr = g.decodeLocal(ctx, c.LatestKey, out)
	}
	return found, g.finish("latest", c, Key{}, remoteErr, localErr, SourceLocal)
}

// callRemote runs fn against the remote store under the configured timeout.
// ErrNotFound passes through untouched; every other error is wrapped with
// ErrRemoteUnavailable.
func (g *Gateway) callRemote(ctx context.Context, fn func(context.Context) error) error {
	if g.remote == nil {
		return ErrConfigurationMissing
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	err := fn(ctx)
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}

func (g *Gateway) finish(op string, c Collection, key Key, remoteErr, localErr error, src Source) Result {
	res := Result{Source: src, RemoteErr: remoteErr, LocalErr: localErr}
	switch {
	case remoteErr == nil && localErr == nil:
		res.Outcome = OutcomeOK
	case c.LocalPrefix == "":
		// remote-only collection: nothing to fall back to, but not fatal
		res.Outcome = OutcomeDegraded
	case remoteErr != nil && localErr != nil:
		res.Outcome = OutcomeFailed
	default:
		res.Outcome = OutcomeDegraded
	}
	if res.Source == SourceLocal && localErr != nil {
		res.Source = SourceNone
	}

	fields := []zap.Field{zap.String("op", op), zap.String("collection", c.Name)}
	if key.ID != "" {
		fields = append(fields, zap.String("id", key.ID))
	}
	if remoteErr != nil && !errors.Is(remoteErr, ErrConfigurationMissing) {
		g.log.Warn("remote store failed, using local fallback", append(fields, zap.Error(remoteErr))...)
	}
	if localErr != nil {
		g.log.Error("local store failed", append(fields, zap.Error(localErr))...)
	}
	metrics.RecordGateway(op, c.Name, string(res.Outcome))
	return res
}

func (g *Gateway) loadBucket(ctx context.Context, key string) (map[string]json.RawMessage, error) {
	bucket := map[string]json.RawMessage{}
	raw, err := g.local.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return bucket, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &bucket); err != nil {
		return nil, fmt.Errorf("decode local %s: %w", key, err)
	}
	return bucket, nil
}

func (g *Gateway) writeLocal(ctx context.Context, c Collection, key Key, body []byte) error {
	lk := c.LocalKey(key.Date)
	if lk == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	value := body
	if c.Bucketed {
		bucket, err := g.loadBucket(ctx, lk)
		if err != nil {
			return err
		}
		bucket[key.ID] = body
		if value, err = json.Marshal(bucket); err != nil {
			return err
		}
	}
	if err := g.local.Set(ctx, lk, value); err != nil {
		return err
	}
	if c.LatestKey != "" {
		return g.local.Set(ctx, c.LatestKey, body)
	}
	return nil
}

func (g *Gateway) deleteLocal(ctx context.Context, c Collection, key Key) error {
	lk := c.LocalKey(key.Date)
	if lk == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if !c.Bucketed {
		return g.local.Remove(ctx, lk)
	}
	bucket, err := g.loadBucket(ctx, lk)
	if err != nil {
		return err
	}
	if _, ok := bucket[key.ID]; !ok {
		return nil
	}
	delete(bucket, key.ID)
	if len(bucket) == 0 {
		return g.local.Remove(ctx, lk)
	}
	raw, err := json.Marshal(bucket)
	if err != nil {
		return err
	}
	return g.local.Set(ctx, lk, raw)
}

func (g *Gateway) readLocal(ctx context.Context, c Collection, key Key, out interface{}) (bool, error) {
	lk := c.LocalKey(key.Date)
	if lk == "" {
		return false, nil
	}
	if !c.Bucketed {
		return g.decodeLocal(ctx, lk, out)
	}
	g.mu.Lock()
	bucket, err := g.loadBucket(ctx, lk)
	g.mu.Unlock()
	if err != nil {
		return false, err
	}
	raw, ok := bucket[key.ID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (g *Gateway) decodeLocal(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := g.local.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode local %s: %w", key, err)
	}
	return true, nil
}

// localKeys lists the local keys a query must visit, newest date first.
func (g *Gateway) localKeys(ctx context.Context, c Collection, f Filter) ([]string, error) {
	if !c.Scoped {
		return []string{c.LocalKey("")}, nil
	}
	if f.DateFrom != "" && f.DateTo != "" {
		from, err := time.Parse(dateLayout, f.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("filter from: %w", err)
		}
		to, err := time.Parse(dateLayout, f.DateTo)
		if err != nil {
			return nil, fmt.Errorf("filter to: %w", err)
		}
		var keys []string
		for d := to; !d.Before(from); d = d.AddDate(0, 0, -1) {
			keys = append(keys, c.LocalKey(d.Format(dateLayout)))
		}
		return keys, nil
	}
	all, err := g.local.Keys(ctx, c.LocalPrefix+"_")
	if err != nil {
		return nil, err
	}
	var keys []string
	for i := len(all) - 1; i >= 0; i-- {
		k := all[i]
		if k == c.LatestKey {
			continue
		}
		date := strings.TrimPrefix(k, c.LocalPrefix+"_")
		if _, err := time.Parse(dateLayout, date); err != nil {
			continue
		}
		if (f.DateFrom != "" && date < f.DateFrom) || (f.DateTo != "" && date > f.DateTo) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (g *Gateway) queryLocal(ctx context.Context, c Collection, f Filter) ([]json.RawMessage, error) {
	if c.LocalPrefix == "" {
		return nil, nil
	}
	keys, err := g.localKeys(ctx, c, f)
	if err != nil {
		return nil, err
	}
	match := func(raw []byte) bool {
		return f.Status == "" || gjson.GetBytes(raw, "status").String() == f.Status
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var out []json.RawMessage
	for _, k := range keys {
		if !c.Bucketed {
			raw, err := g.local.Get(ctx, k)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if match(raw) {
				out = append(out, json.RawMessage(raw))
			}
			continue
		}
		bucket, err := g.loadBucket(ctx, k)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if match(bucket[id]) {
				out = append(out, bucket[id])
			}
		}
	}
	return out, nil
}

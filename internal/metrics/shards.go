package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/volley/internal/request"
)

const numShards = 32

// Track latencies from 1µs up to 60s with 3 significant figures.
const (
	histLowest  = 1
	histHighest = 60_000_000
	histSigFigs = 3
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(histLowest, histHighest, histSigFigs)
}

func recordClamped(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

// bucket is the partial aggregate held by one shard.
type bucket struct {
	latency       *hdrhistogram.Histogram
	admissionWait *hdrhistogram.Histogram
	successes     int64
	failures      int64
	cancelled     int64
	minLatency    time.Duration
	maxLatency    time.Duration
	sumLatency    time.Duration
	failureKinds  map[request.ErrorKind]int64
	statusCodes   map[int]int64
}

func newBucket() *bucket {
	return &bucket{
		latency:       newHistogram(),
		admissionWait: newHistogram(),
		failureKinds:  make(map[request.ErrorKind]int64),
		statusCodes:   make(map[int]int64),
	}
}

func (b *bucket) record(o request.Outcome) {
	switch o.Kind {
	case request.KindCancelled:
		b.cancelled++
		return
	case request.KindSuccess:
		b.successes++
		b.statusCodes[o.StatusCode]++
	case request.KindFailure:
		b.failures++
		b.failureKinds[o.ErrorKind]++
	}

	recordClamped(b.latency, o.Latency)
	recordClamped(b.admissionWait, o.AdmissionWait)
	b.sumLatency += o.Latency
	if b.successes+b.failures == 1 || o.Latency < b.minLatency {
		b.minLatency = o.Latency
	}
	if o.Latency > b.maxLatency {
		b.maxLatency = o.Latency
	}
}

// mergeInto folds b into dst. dst must not be shared.
func (b *bucket) mergeInto(dst *bucket) {
	issued := b.successes + b.failures
	if issued > 0 {
		if dst.successes+dst.failures == 0 || b.minLatency < dst.minLatency {
			dst.minLatency = b.minLatency
		}
		if b.maxLatency > dst.maxLatency {
			dst.maxLatency = b.maxLatency
		}
	}
	dst.successes += b.successes
	dst.failures += b.failures
	dst.cancelled += b.cancelled
	dst.sumLatency += b.sumLatency
	for k, v := range b.failureKinds {
		dst.failureKinds[k] += v
	}
	for k, v := range b.statusCodes {
		dst.statusCodes[k] += v
	}
	dst.latency.Merge(b.latency)
	dst.admissionWait.Merge(b.admissionWait)
}

type shard struct {
	mu     sync.Mutex
	bucket *bucket
}

// shardedStats spreads records over independently locked buckets so
// concurrent recorders rarely contend.
type shardedStats struct {
	shards [numShards]*shard
}

func newShardedStats() *shardedStats {
	s := &shardedStats{}
	for i := range s.shards {
		s.shards[i] = &shard{bucket: newBucket()}
	}
	return s
}

func (s *shardedStats) record(o request.Outcome) {
	sh := s.shards[o.Seq%numShards]
	sh.mu.Lock()
	sh.bucket.record(o)
	sh.mu.Unlock()
}

func (s *shardedStats) merge() *bucket {
	total := newBucket()
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.bucket.mergeInto(total)
		sh.mu.Unlock()
	}
	return total
}

package library

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manash/stylestudio/pkg/models"
)

type fakeList struct {
	items   []string
	trimmed [2]int64
	pushErr error
	closed  bool
}

func (f *fakeList) LPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}
	for _, v := range values {
		f.items = append([]string{string(v.([]byte))}, f.items...)
	}
	return redis.NewIntResult(int64(len(f.items)), nil)
}

func (f *fakeList) LTrim(_ context.Context, _ string, start, stop int64) *redis.StatusCmd {
	f.trimmed = [2]int64{start, stop}
	if int(stop+1) < len(f.items) {
		f.items = f.items[:stop+1]
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeList) LRange(_ context.Context, _ string, start, stop int64) *redis.StringSliceCmd {
	end := int(stop + 1)
	if end > len(f.items) {
		end = len(f.items)
	}
	return redis.NewStringSliceResult(f.items[start:end], nil)
}

func (f *fakeList) Close() error {
	f.closed = true
	return nil
}

func TestRedisSink_RecordAndRecent(t *testing.T) {
	fl := &fakeList{}
	sink := newRedisSink(fl, "", 2)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"a", "b", "c"} {
		if err := sink.Record(ctx, galleryEntry(id, "Anime", 0.04, ts)); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if sink.key != DefaultRedisKey {
		t.Errorf("key = %q, want %q", sink.key, DefaultRedisKey)
	}
	if fl.trimmed != [2]int64{0, 1} {
		t.Errorf("LTrim() range = %v, want [0 1]", fl.trimmed)
	}

	recent, err := sink.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
		t.Fatalf("Recent() = %+v", recent)
	}
	if recent[0].AspectRatio != "1:1" || recent[0].Bytes != len("img-c") || !recent[0].Timestamp.Equal(ts) {
		t.Errorf("Recent()[0] = %+v", recent[0])
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(fl.items[0]), &raw); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if _, ok := raw["image"]; ok {
		t.Error("payload must not carry image bytes")
	}

	if got, _ := sink.Recent(ctx, 0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}

	sink.Close()
	if !fl.closed {
		t.Error("Close() did not close the client")
	}
}

func TestRedisSink_PushError(t *testing.T) {
	sink := newRedisSink(&fakeList{pushErr: errors.New("conn refused")}, "k", 0)
	if sink.maxLen != DefaultRedisMaxLen {
		t.Errorf("maxLen = %d, want %d", sink.maxLen, DefaultRedisMaxLen)
	}
	if err := sink.Record(context.Background(), galleryEntry("a", "Anime", 0, time.Now())); err == nil {
		t.Error("Record() expected error")
	}
}

type recordingSink struct {
	got []models.GalleryEntry
	err error
}

func (r *recordingSink) Record(_ context.Context, e models.GalleryEntry) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanout(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("down")}
	f := Fanout{ok, nil, failing}

	err := f.Record(context.Background(), galleryEntry("a", "Anime", 0, time.Now()))
	if err == nil || err.Error() != "down" {
		t.Errorf("Fanout.Record() error = %v, want down", err)
	}
	if len(ok.got) != 1 || len(failing.got) != 1 {
		t.Errorf("Fanout.Record() reached %d and %d sinks", len(ok.got), len(failing.got))
	}
	if ok.got[0].ID != failing.got[0].ID {
		t.Error("sinks saw different entry ids")
	}
}

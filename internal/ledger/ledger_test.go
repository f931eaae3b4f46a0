package ledger

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestDownloadsPage(t *testing.T) {
	d := NewDownloads()
	for i := 0; i < 25; i++ {
		d.Append(DownloadedEntry{Filename: fmt.Sprintf("%02d.jpg", i), Date: time.Unix(int64(i), 0), MediaType: "image"})
	}

	page := d.Page(0, 0)
	if page.Limit != DefaultPageLimit || len(page.Items) != 20 || page.Total != 25 {
		t.Fatalf("unexpected default page: limit=%d items=%d total=%d", page.Limit, len(page.Items), page.Total)
	}
	if page.Items[0].Filename != "00.jpg" {
		t.Fatalf("expected append order, got %q first", page.Items[0].Filename)
	}

	page = d.Page(20, 10)
	if len(page.Items) != 5 || page.Items[4].Filename != "24.jpg" {
		t.Fatalf("unexpected tail page: %+v", page.Items)
	}

	page = d.Page(100, 10)
	if page.Items == nil || len(page.Items) != 0 || page.Total != 25 {
		t.Fatalf("expected empty non-nil items past the end, got %+v", page)
	}

	page = d.Page(-3, 1)
	if page.Offset != 0 || len(page.Items) != 1 {
		t.Fatalf("expected negative offset clamp, got %+v", page)
	}

	d.Reset()
	if d.Len() != 0 {
		t.Fatalf("expected empty ledger after reset, got %d", d.Len())
	}
}

func TestDownloadsConcurrentAppend(t *testing.T) {
	d := NewDownloads()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Append(DownloadedEntry{Filename: fmt.Sprintf("%d.jpg", i)})
		}(i)
	}
	wg.Wait()
	if d.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", d.Len())
	}
}

func TestFailuresDedupeAndFallbackReason(t *testing.T) {
	f := NewFailures()
	if !f.Record("a.jpg", "HTTP 404") {
		t.Fatal("expected first record to be added")
	}
	if f.Record("a.jpg", "again") {
		t.Fatal("expected duplicate filename to be ignored")
	}
	f.Record("b.mp4", "  ")

	if reason, _ := f.Reason("a.jpg"); reason != "HTTP 404" {
		t.Fatalf("expected first reason to win, got %q", reason)
	}
	if reason, _ := f.Reason("b.mp4"); reason != UnknownReason {
		t.Fatalf("expected fallback reason, got %q", reason)
	}
	if f.Len() != 2 {
		t.Fatalf("expected 2 failures, got %d", f.Len())
	}
	f.Reset()
	if f.Len() != 0 {
		t.Fatal("expected empty failures after reset")
	}
}

func TestFailureListJSONKeepsOrder(t *testing.T) {
	f := NewFailures()
	f.Record("z.jpg", "first")
	f.Record("a.jpg", "second \"quoted\"")
	f.Record("m.mp4", "third")

	raw, err := json.Marshal(f.Entries())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"z.jpg":"first","a.jpg":"second \"quoted\"","m.mp4":"third"}`
	if string(raw) != want {
		t.Fatalf("unexpected JSON:\n got %s\nwant %s", raw, want)
	}

	var decoded FailureList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 3 || decoded[0].Filename != "z.jpg" || decoded[2].Reason != "third" {
		t.Fatalf("unexpected decoded list: %+v", decoded)
	}
}

func TestFailureListEmptyJSON(t *testing.T) {
	raw, err := json.Marshal(NewFailures().Entries())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "{}" {
		t.Fatalf("expected empty object, got %s", raw)
	}
	var decoded FailureList
	if err := json.Unmarshal([]byte(`[1]`), &decoded); err == nil {
		t.Fatal("expected error decoding an array")
	}
}

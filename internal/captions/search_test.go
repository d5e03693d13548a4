package captions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ytdigest/internal/services"
)

func TestSearchOrdersByViewCount(t *testing.T) {
	exec := &fakeExecutor{stdout: []string{
		"ytdigest-result:aaaaaaaaaaa\t120",
		"[youtube:search] Downloading page",
		"ytdigest-result:bbbbbbbbbbb\t9000",
		"ytdigest-result:aaaaaaaaaaa\t120",
		"ytdigest-result:not-an-id\t5",
		"ytdigest-result:ccccccccccc\tNA",
	}}
	s := NewSearcher(Settings{}, nil, WithExecutor(exec))

	ids, err := s.Search(context.Background(), SearchQuery{Keyword: "golang generics", Limit: 6})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if strings.Join(ids, ",") != "bbbbbbbbbbb,aaaaaaaaaaa,ccccccccccc" {
		t.Fatalf("unexpected order %v", ids)
	}
	last := exec.args[len(exec.args)-1]
	if last != "ytsearch6:golang generics" {
		t.Fatalf("unexpected search target %q", last)
	}
	for _, arg := range exec.args {
		if arg == "--match-filter" {
			t.Fatal("expected no duration filter by default")
		}
	}
}

func TestSearchArgsForSortAndDuration(t *testing.T) {
	cases := []struct {
		query      SearchQuery
		wantTarget string
		wantFilter string
	}{
		{SearchQuery{Keyword: "k", Sort: "relevance", Duration: "short", Limit: 3}, "ytsearch3:k", "duration<240"},
		{SearchQuery{Keyword: "k", Sort: "UPLOAD_DATE", Duration: "medium", Limit: 9}, "ytsearchdate9:k", "duration>=240 & duration<=1200"},
		{SearchQuery{Keyword: "k", Duration: "long", Limit: 1}, "ytsearch1:k", "duration>1200"},
	}
	for _, tc := range cases {
		q, err := tc.query.Normalize()
		if err != nil {
			t.Fatalf("Normalize(%+v): %v", tc.query, err)
		}
		args := searchArgs(q)
		if got := args[len(args)-1]; got != tc.wantTarget {
			t.Fatalf("expected target %q, got %q", tc.wantTarget, got)
		}
		if !strings.Contains(strings.Join(args, " "), "--match-filter "+tc.wantFilter) {
			t.Fatalf("expected filter %q in %v", tc.wantFilter, args)
		}
	}
}

func TestSearchQueryRejectsUnknownValues(t *testing.T) {
	for _, q := range []SearchQuery{
		{Keyword: "", Limit: 1},
		{Keyword: "k", Limit: 0},
		{Keyword: "k", Sort: "rating", Limit: 1},
		{Keyword: "k", Duration: "epic", Limit: 1},
	} {
		if _, err := q.Normalize(); err == nil {
			t.Fatalf("expected %+v to be rejected", q)
		}
	}
	s := NewSearcher(Settings{}, nil, WithExecutor(&fakeExecutor{}))
	if _, err := s.Search(context.Background(), SearchQuery{Keyword: "k", Sort: "rating", Limit: 1}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSearchFailures(t *testing.T) {
	empty := NewSearcher(Settings{}, nil, WithExecutor(&fakeExecutor{stdout: []string{"[youtube:search] nothing"}}))
	if _, err := empty.Search(context.Background(), SearchQuery{Keyword: "zzz", Limit: 2}); !errors.Is(err, services.ErrFetch) || !strings.Contains(err.Error(), "no videos found") {
		t.Fatalf("expected no-results fetch error, got %v", err)
	}

	broken := NewSearcher(Settings{}, nil, WithExecutor(&fakeExecutor{
		stdout: []string{"ERROR: Unable to download API page"},
		err:    errors.New("exit status 1"),
	}))
	if _, err := broken.Search(context.Background(), SearchQuery{Keyword: "k", Limit: 2}); !errors.Is(err, services.ErrFetch) || !strings.Contains(err.Error(), "Unable to download API page") {
		t.Fatalf("expected yt-dlp error surfaced, got %v", err)
	}

	partial := NewSearcher(Settings{}, nil, WithExecutor(&fakeExecutor{
		stdout: []string{"ytdigest-result:aaaaaaaaaaa\t1", "ERROR: one entry failed"},
		err:    errors.New("exit status 1"),
	}))
	ids, err := partial.Search(context.Background(), SearchQuery{Keyword: "k", Limit: 2})
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected partial results kept, got %v, %v", ids, err)
	}
}

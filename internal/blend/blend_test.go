package blend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/FranksOps/searchcredit/internal/terms"
)

type fakeSource struct {
	terms []string
	err   error
	limit int
}

func (f *fakeSource) FetchTrending(_ context.Context, limit int) ([]string, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.terms) > limit {
		return f.terms[:limit], nil
	}
	return f.terms, nil
}

type countingGen struct{ prefix string }

func (g countingGen) GenerateMany(count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", g.prefix, i)
	}
	return out
}

func sorted(s []string) []string {
	c := append([]string(nil), s...)
	sort.Strings(c)
	return c
}

func TestMix_IsPermutationOfUnion(t *testing.T) {
	b := New(Config{}, nil, countingGen{"s"}, WithRand(rand.New(rand.NewSource(1))))
	trending := []string{"t1", "t2", "t3"}

	got := b.Mix(trending, 5)
	want := append(append([]string{}, trending...), countingGen{"s"}.GenerateMany(5)...)
	if !reflect.DeepEqual(sorted(got), sorted(want)) {
		t.Fatalf("Mix multiset mismatch:\n got %v\nwant %v", sorted(got), sorted(want))
	}
	if trending[0] != "t1" || trending[2] != "t3" {
		t.Errorf("Mix modified the caller's slice: %v", trending)
	}
}

func TestMix_KeepsCrossSourceDuplicates(t *testing.T) {
	b := New(Config{}, nil, countingGen{"dup"}, WithRand(rand.New(rand.NewSource(1))))
	got := b.Mix([]string{"dup-0"}, 1)
	if len(got) != 2 {
		t.Errorf("expected duplicate across sources to be kept, got %v", got)
	}
}

func TestMix_ShufflesEveryPosition(t *testing.T) {
	b := New(Config{}, nil, countingGen{"s"}, WithRand(rand.New(rand.NewSource(2))))
	firsts := map[string]bool{}
	for i := 0; i < 200; i++ {
		firsts[b.Mix([]string{"t"}, 3)[0]] = true
	}
	if len(firsts) != 4 {
		t.Errorf("expected every term to appear first at some point, saw %v", firsts)
	}
}

func TestBlend_DefaultSplit(t *testing.T) {
	var trending []string
	for i := 0; i < 20; i++ {
		trending = append(trending, fmt.Sprintf("trend-%d", i))
	}
	src := &fakeSource{terms: trending}
	b := New(DefaultConfig, src, countingGen{"s"}, WithRand(rand.New(rand.NewSource(3))))

	got, stats := b.Blend(context.Background())
	if src.limit != 10 {
		t.Errorf("expected trending limit 10, got %d", src.limit)
	}
	if len(got) != 100 || stats.Trending != 10 || stats.Synthesized != 90 || stats.Total != 100 {
		t.Errorf("unexpected blend: len=%d stats=%+v", len(got), stats)
	}
}

func TestBlend_TruncatesToLimit(t *testing.T) {
	src := &fakeSource{terms: []string{"a", "b", "c"}}
	b := New(Config{TrendingCount: 3, SynthesizedCount: 10, Limit: 5}, src, countingGen{"s"})

	got, stats := b.Blend(context.Background())
	if len(got) != 5 || stats.Total != 5 {
		t.Errorf("expected 5 terms, got %d (%+v)", len(got), stats)
	}
}

func TestBlend_TrendFailureDegrades(t *testing.T) {
	boom := errors.New("api down")
	src := &fakeSource{err: boom}
	gen, err := terms.New(rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("terms.New: %v", err)
	}
	b := New(Config{TrendingCount: 10, SynthesizedCount: 25}, src, gen)

	got, stats := b.Blend(context.Background())
	if !errors.Is(stats.TrendErr, boom) {
		t.Errorf("expected trend error in stats, got %v", stats.TrendErr)
	}
	if stats.Trending != 0 || len(got) != 25 || stats.Synthesized != 25 {
		t.Errorf("expected only synthesized terms, got len=%d stats=%+v", len(got), stats)
	}
	seen := map[string]bool{}
	for _, term := range got {
		if seen[term] {
			t.Errorf("duplicate synthesized term %q", term)
		}
		seen[term] = true
	}
}

func TestBlend_NilSource(t *testing.T) {
	b := New(Config{TrendingCount: 10, SynthesizedCount: 4}, nil, countingGen{"s"})
	got, stats := b.Blend(context.Background())
	if len(got) != 4 || stats.TrendErr != nil {
		t.Errorf("expected synthesized-only batch, got %v %+v", got, stats)
	}
}

func TestBlend_TrendingOnly(t *testing.T) {
	src := &fakeSource{terms: []string{"a", "b"}}
	b := New(Config{TrendingCount: 10}, src, nil)
	got, stats := b.Blend(context.Background())
	if len(got) != 2 || stats.Synthesized != 0 {
		t.Errorf("expected trending-only batch, got %v %+v", got, stats)
	}
}

func TestBlend_Deterministic(t *testing.T) {
	run := func() []string {
		src := &fakeSource{terms: []string{"a", "b", "c"}}
		b := New(Config{TrendingCount: 3, SynthesizedCount: 7}, src, countingGen{"s"}, WithRand(rand.New(rand.NewSource(9))))
		got, _ := b.Blend(context.Background())
		return got
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different orders:\n%v\n%v", a, b)
	}
}

func TestTruncate(t *testing.T) {
	in := []string{"a", "b", "c"}
	if got := Truncate(in, 2); len(got) != 2 {
		t.Errorf("expected 2, got %v", got)
	}
	if got := Truncate(in, 0); len(got) != 3 {
		t.Errorf("expected no cap, got %v", got)
	}
	if got := Truncate(in, 10); len(got) != 3 {
		t.Errorf("expected untouched, got %v", got)
	}
}

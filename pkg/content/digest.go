package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	// DigestPlaceholder is returned when no memo has enough text to summarize.
	DigestPlaceholder = "Nothing to summarize this time: none of the synced memos has enough text for a digest."

	digestFooter = "---\n*This digest was composed automatically from your memos. Review it before relying on it.*"
)

// Week identifies an ISO 8601 week.
type Week struct {
	Year int
	Num  int
}

func (w Week) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Num)
}

// Before orders weeks chronologically.
func (w Week) Before(o Week) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Num < o.Num
}

// WeekOf returns the ISO week of t in loc.
func WeekOf(t time.Time, loc *time.Location) Week {
	y, n := t.In(loc).ISOWeek()
	return Week{Year: y, Num: n}
}

// Monday returns midnight of the Monday that starts w in loc.
func (w Week) Monday(loc *time.Location) time.Time {
	// January 4th is always in week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(w.Num-1)*7)
}

// GroupByWeek buckets memos by the ISO week of their CreateTime, preserving
// input order inside each bucket. Weeks are returned newest first.
func GroupByWeek(memos []core.Memo, loc *time.Location) ([]Week, map[Week][]core.Memo) {
	groups := make(map[Week][]core.Memo)
	var weeks []Week
	for _, m := range memos {
		w := WeekOf(m.CreateTime, loc)
		if _, ok := groups[w]; !ok {
			weeks = append(weeks, w)
		}
		groups[w] = append(groups[w], m)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[j].Before(weeks[i]) })
	return weeks, groups
}

// WeeklyDigest composes one section per ISO week over the eligible memos,
// limited to the newest Config.DigestWeeks weeks when set.
func (t *Transformer) WeeklyDigest(ctx context.Context, memos []core.Memo) core.Digest {
	var eligible []core.Memo
	for _, m := range memos {
		if Eligible(m.Content) {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return core.Digest{Body: DigestPlaceholder}
	}

	loc := t.cfg.Location
	weeks, groups := GroupByWeek(eligible, loc)
	if n := t.cfg.DigestWeeks; n > 0 && len(weeks) > n {
		weeks = weeks[:n]
	}

	var sections []string
	count := 0
	for _, w := range weeks {
		if ctx.Err() != nil {
			break
		}
		group := groups[w]
		texts := make([]string, 0, len(group))
		for _, m := range group {
			texts = append(texts, m.Content)
		}

		out, err := t.provider.ComposeDigest(ctx, texts)
		if err != nil {
			t.logger.Warn("digest week skipped", "week", w.String(), "error", err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			continue
		}

		monday := w.Monday(loc)
		sunday := monday.AddDate(0, 0, 6)
		noun := "memos"
		if len(group) == 1 {
			noun = "memo"
		}
		sections = append(sections, fmt.Sprintf("## %s (%s to %s)\n\n*%d %s*\n\n%s",
			w, monday.Format(time.DateOnly), sunday.Format(time.DateOnly), len(group), noun, strings.TrimSpace(out)))
		count += len(group)
	}

	if len(sections) == 0 {
		return core.Digest{Body: DigestPlaceholder}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Weekly Digest\n\n*Generated %s*\n\n", t.cfg.Now().In(loc).Format(time.DateOnly))
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(digestFooter)
	b.WriteString("\n")
	return core.Digest{Body: b.String(), Weeks: len(sections), Memos: count}
}

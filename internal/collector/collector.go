// Package collector runs the member enumeration and the per member wishlist
// fetches and flattens everything into wishlist records.
package collector

import (
	"context"
	"fmt"
	"io"
	"steamwishlist/internal/components/assert"
	"steamwishlist/internal/components/telemetry"
	"steamwishlist/internal/wishlist"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_collector_members  = "collector.members"
	report_collector_wishlist = "collector.wishlist"
	report_collector_records  = "collector.records"
)

var tracer = otel.Tracer("steamwishlist/collector")

type Mode int

const (
	// ModeFriends treats the target as a profile and collects its friends.
	ModeFriends Mode = iota
	// ModeGroup treats the target as a group and collects its members.
	ModeGroup
)

func (m Mode) String() string {
	if m == ModeGroup {
		return "group"
	}
	return "friends"
}

// Enumerator lists the members whose wishlists should be fetched.
type Enumerator interface {
	Members(ctx context.Context, target string, mode Mode) ([]wishlist.Member, error)
}

// Fetcher returns the wishlist of a single member. An empty result means the
// wishlist is empty or private, it is not an error.
type Fetcher interface {
	Wishlist(ctx context.Context, member wishlist.Member) ([]wishlist.Item, error)
}

type Result struct {
	Members []wishlist.Member
	Records []wishlist.Record
	// Failed lists the members whose wishlist could not be fetched, they
	// contribute no records.
	Failed []wishlist.Member
}

type Collector struct {
	enumerator Enumerator
	fetcher    Fetcher
	progress   io.Writer
	tel        telemetry.API
}

// NewCollector creates a collector, progress messages are written to `progress`
// (which may be io.Discard).
func NewCollector(enumerator Enumerator, fetcher Fetcher, progress io.Writer, tel telemetry.API) Collector {
	assert.NotNil(enumerator, "enumerator")
	assert.NotNil(fetcher, "fetcher")
	assert.NotNil(progress, "progress")
	assert.NotNil(tel, "tel")

	return Collector{
		enumerator: enumerator,
		fetcher:    fetcher,
		progress:   progress,
		tel:        telemetry.NewScopedAPI("collector", tel),
	}
}

func (c Collector) printf(format string, args ...any) {
	fmt.Fprintf(c.progress, format+"\n", args...)
}

// Collect enumerates the members of target once, then fetches each member's
// wishlist in list order. Failing to enumerate is fatal, failing to fetch a
// single wishlist is not.
func (c Collector) Collect(ctx context.Context, target string, mode Mode) (Result, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()
	span.SetAttributes(
		attribute.String("steamwishlist.target", target),
		attribute.String("steamwishlist.mode", mode.String()),
	)

	if mode == ModeGroup {
		c.printf("Searching for group members...")
	} else {
		c.printf("Searching for friends...")
	}

	members, err := c.enumerator.Members(ctx, target, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enumerate members")
		c.tel.ReportBroken(report_collector_members, err, target, mode.String())
		return Result{}, fmt.Errorf("list %s of %s: %w", mode, target, err)
	}
	c.tel.ReportCount(report_collector_members, int64(len(members)))
	c.printf("--- Found %d member(s)", len(members))
	c.printf("")
	c.printf("Fetching wishlists")

	result := Result{Members: members}
	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		items, err := c.fetcher.Wishlist(ctx, member)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			c.tel.ReportWarning(report_collector_wishlist, err, member.ID)
			c.printf("... %s failed", member.Name)
			result.Failed = append(result.Failed, member)
			continue
		}

		result.Records = append(result.Records, wishlist.RecordsFor(member, items)...)
		c.printf("... %s done (%d item(s))", member.Name, len(items))
	}

	c.tel.ReportCount(report_collector_records, int64(len(result.Records)))
	span.SetAttributes(
		attribute.Int("steamwishlist.records", len(result.Records)),
		attribute.Int("steamwishlist.failed", len(result.Failed)),
	)
	c.printf("--- All lists retrieved")
	c.printf("")

	return result, nil
}

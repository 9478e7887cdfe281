package steam

import (
	"net/url"
	"regexp"
	"steamwishlist/internal/components/telemetry"
	"steamwishlist/internal/wishlist"
	"steamwishlist/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse_friend_block   = "parse.friend-block"
	report_parse_member_block   = "parse.member-block"
	report_parse_wishlist_row   = "parse.wishlist-row"
	report_parse_wishlist_empty = "parse.wishlist-empty"
)

// friends page, older layout
const (
	selLegacyFriendBlock = `div[class*="friendBlock_"]`
	selLegacyFriendLink  = `a[class*="linkFriend_"]`
)

// friends page, current layout
const (
	selFriendBlock   = `div.friend_block_v2[data-steamid]`
	selFriendContent = `.friend_block_content`
)

// group members page
const (
	selMemberBlock = `div.member_block`
	selMemberLink  = `a.linkFriend`
)

// wishlist page, older layout
const (
	selLegacyWishlistRow   = `div.wishlistRowItem`
	selLegacyWishlistTitle = `h4`
	selLegacyStoreLink     = `a[class*="btn_visit_store"]`
	selLegacyRowContainer  = `[id^="game_"]`
)

// wishlist page, current layout
const (
	selWishlistRow   = `div.wishlist_row[data-app-id]`
	selWishlistTitle = `a.title`
)

var storeAppIdRegex = regexp.MustCompile(`(\d+)/?$`)

// memberFromAnchor takes the id from the last segment of a profile link,
// "/id/alice" and "/profiles/7656..." both work.
func memberFromAnchor(anchor htmlutil.Anchor) wishlist.Member {
	id := htmlutil.LastPathSegment(anchor.Url)
	name := anchor.Name
	if name == "" {
		name = id
	}
	return wishlist.Member{ID: id, Name: name}
}

func parseFriends(page *url.URL, doc *goquery.Document, tel telemetry.API) []wishlist.Member {
	members := []wishlist.Member{}

	legacy := doc.Find(selLegacyFriendBlock)
	if legacy.Length() > 0 {
		legacy.Each(func(_ int, block *goquery.Selection) {
			anchors := htmlutil.GetAnchors(page, block.Find(selLegacyFriendLink).First())
			if len(anchors) == 0 {
				tel.ReportWarning(report_parse_friend_block, "friend link not found", page.String())
				return
			}
			member := memberFromAnchor(anchors[0])
			if member.ID == "" {
				tel.ReportWarning(report_parse_friend_block, "empty friend id", anchors[0].Url.String())
				return
			}
			members = append(members, member)
		})
		return members
	}

	doc.Find(selFriendBlock).Each(func(_ int, block *goquery.Selection) {
		id := strings.TrimSpace(block.AttrOr("data-steamid", ""))
		if id == "" {
			tel.ReportWarning(report_parse_friend_block, "empty data-steamid", page.String())
			return
		}
		name := htmlutil.OwnText(block.Find(selFriendContent))
		if name == "" {
			name = id
		}
		members = append(members, wishlist.Member{ID: id, Name: name})
	})
	return members
}

func parseGroupMembers(page *url.URL, doc *goquery.Document, tel telemetry.API) []wishlist.Member {
	members := []wishlist.Member{}
	doc.Find(selMemberBlock).Each(func(_ int, block *goquery.Selection) {
		anchors := htmlutil.GetAnchors(page, block.Find(selMemberLink).First())
		if len(anchors) == 0 {
			tel.ReportWarning(report_parse_member_block, "member link not found", page.String())
			return
		}
		member := memberFromAnchor(anchors[0])
		if member.ID == "" {
			tel.ReportWarning(report_parse_member_block, "empty member id", anchors[0].Url.String())
			return
		}
		members = append(members, member)
	})
	return members
}

func legacyAppId(page *url.URL, row *goquery.Selection) string {
	anchors := htmlutil.GetAnchors(page, row.Find(selLegacyStoreLink).First())
	if len(anchors) > 0 {
		groups := storeAppIdRegex.FindStringSubmatch(anchors[0].Url.Path)
		if len(groups) >= 2 {
			return groups[1]
		}
	}

	// the row container is usually called game_<appid>
	container := row.Closest(selLegacyRowContainer)
	if container.Length() > 0 {
		id := strings.TrimPrefix(container.AttrOr("id", ""), "game_")
		if isNumeric(id) {
			return id
		}
	}
	return ""
}

func parseWishlist(page *url.URL, doc *goquery.Document, tel telemetry.API) []wishlist.Item {
	items := []wishlist.Item{}

	doc.Find(selLegacyWishlistRow).Each(func(_ int, row *goquery.Selection) {
		title := htmlutil.NormalizeText(row.Find(selLegacyWishlistTitle).First().Text())
		id := legacyAppId(page, row)
		if id == "" {
			tel.ReportWarning(report_parse_wishlist_row, "app id not found", title, page.String())
			return
		}
		items = append(items, wishlist.Item{ID: id, Title: title})
	})

	doc.Find(selWishlistRow).Each(func(_ int, row *goquery.Selection) {
		id := strings.TrimSpace(row.AttrOr("data-app-id", ""))
		title := htmlutil.NormalizeText(row.Find(selWishlistTitle).First().Text())
		if !isNumeric(id) {
			tel.ReportWarning(report_parse_wishlist_row, "invalid data-app-id", id, page.String())
			return
		}
		items = append(items, wishlist.Item{ID: id, Title: title})
	})

	if len(items) == 0 {
		tel.ReportDebug(report_parse_wishlist_empty, page.String())
	}
	return items
}

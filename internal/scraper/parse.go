package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storewatch/internal/model"
)

// circleSuffix strips a trailing parenthesized note such as "Circle (artist)".
var circleSuffix = regexp.MustCompile(`^(.*)(\(.*\))$`)

func missing(what string) error {
	return fmt.Errorf("%s: %w", what, ErrMissingElement)
}

func parseItemList(doc *goquery.Document, base *url.URL) ([]string, error) {
	list := doc.Find(".item-list").First()
	if list.Length() == 0 {
		return nil, missing("item list")
	}

	var urls []string
	var err error
	list.Find("li").Not(".item-list__placeholder").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		link := li.Find("a > .product_title").First().Parent()
		if link.Length() == 0 {
			err = missing("item link")
			return false
		}
		href, ok := link.Attr("href")
		if !ok {
			err = missing(fmt.Sprintf("href of %q", strings.TrimSpace(link.Text())))
			return false
		}
		ref, perr := url.Parse(href)
		if perr != nil {
			err = fmt.Errorf("parse item href %q: %w", href, perr)
			return false
		}
		urls = append(urls, base.ResolveReference(ref).String())
		return true
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

func parseItemDetails(doc *goquery.Document) (*model.ItemData, error) {
	page := doc.Find(".item-page").First()
	if page.Length() == 0 {
		return nil, missing("item page")
	}
	header := page.Find(".item-header").First()
	if header.Length() == 0 {
		return nil, missing("item header")
	}

	title := header.Find(".page-header").First()
	if title.Length() == 0 {
		return nil, missing("page header")
	}
	category := header.Find(".notes-analog").First()
	if category.Length() == 0 {
		return nil, missing("category")
	}

	tagList := page.Find(".item-detail2 > .mt6").First()
	if tagList.Length() == 0 {
		return nil, missing("tag list")
	}
	tags := uniqueTexts(tagList.Find("a"), func(s string) string {
		return strings.TrimSpace(strings.TrimPrefix(s, "#"))
	})

	metas := page.Find(".item-metas-wrap").First()
	if metas.Length() == 0 {
		return nil, missing("item metas")
	}
	var price string
	if p := metas.Find(".price > .yen").First(); p.Length() > 0 {
		price = strings.TrimSpace(p.Text())
	}

	availability, err := parseAvailability(metas)
	if err != nil {
		return nil, err
	}

	circle, err := parseCircle(page)
	if err != nil {
		return nil, err
	}

	artistRow := detailRow(page, "作家名", "アーティスト")
	if artistRow.Length() == 0 {
		return nil, missing("artist row")
	}
	artists := uniqueTexts(linked(artistRow.Find("a")), strings.TrimSpace)

	src, ok := page.Find(".item-img img").First().Attr("src")
	if !ok {
		return nil, missing("image url")
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	return &model.ItemData{
		Title:        strings.TrimSpace(title.Text()),
		Circle:       circle,
		Artists:      artists,
		ImageURL:     src,
		Category:     strings.TrimSpace(category.Text()),
		Tags:         tags,
		Flags:        uniqueTexts(header.Find(".notes-red"), strings.TrimSpace),
		Price:        price,
		Availability: availability,
	}, nil
}

func parseAvailability(metas *goquery.Selection) (model.Availability, error) {
	state := metas.Find(".state-instock").First()
	if state.Length() == 0 {
		return "", missing("availability")
	}
	switch label := strings.TrimSpace(state.Text()); label {
	case "-":
		return model.NotAvailable, nil
	case "好評受付中":
		return model.Preorder, nil
	case "残りわずか", "在庫あり", "発売中":
		return model.Available, nil
	default:
		return "", fmt.Errorf("%q: %w", label, ErrUnknownAvailability)
	}
}

// parseCircle returns "" when the page has no circle row.
func parseCircle(page *goquery.Selection) (string, error) {
	row := detailRow(page, "サークル名")
	if row.Length() == 0 {
		return "", nil
	}
	link := linked(row.Find("a")).First()
	if link.Length() == 0 {
		return "", missing("circle")
	}
	circle := strings.TrimSpace(link.Text())
	if m := circleSuffix.FindStringSubmatch(circle); m != nil {
		circle = strings.TrimSpace(m[1])
	}
	return circle, nil
}

// detailRow returns the first detail table row whose header is one of labels.
func detailRow(page *goquery.Selection, labels ...string) *goquery.Selection {
	return page.Find(".item-detail .table-wrapper tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		th := strings.TrimSpace(tr.Find("th").First().Text())
		for _, l := range labels {
			if th == l {
				return true
			}
		}
		return false
	}).First()
}

// linked keeps anchors that point somewhere other than "#".
func linked(links *goquery.Selection) *goquery.Selection {
	return links.FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		return ok && href != "#"
	})
}

func uniqueTexts(sel *goquery.Selection, clean func(string) string) []string {
	seen := make(map[string]struct{})
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		text := clean(s.Text())
		if text == "" {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

// Package timeline projects albums, tours, quotes and images onto a single
// date-ordered history.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mayday/internal/models"
)

// Kind tags which entity an Entry holds.
type Kind string

const (
	KindAlbum Kind = "album"
	KindTour  Kind = "tour"
	KindQuote Kind = "quote"
	KindImage Kind = "image"
)

// Kinds lists every kind in projection order.
var Kinds = []Kind{KindAlbum, KindTour, KindQuote, KindImage}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown timeline kind %q", s)
}

// Item is the read-only view of one timeline entry.
type Item struct {
	Kind    Kind                   `json:"type" yaml:"type"`
	ID      int64                  `json:"id" yaml:"id"`
	Date    time.Time              `json:"date" yaml:"date"`
	Title   string                 `json:"title" yaml:"title"`
	Content map[string]interface{} `json:"content" yaml:"content"`
}

// Entry holds exactly one entity, selected by Kind.
type Entry struct {
	Kind  Kind
	Album *models.Album
	Tour  *models.Tour
	Quote *models.Quote
	Image *models.Image
}

const dateLayout = "2006-01-02"

// Item projects the entry.
func (e Entry) Item() Item {
	switch e.Kind {
	case KindAlbum:
		a := e.Album
		return Item{
			Kind:  KindAlbum,
			ID:    a.ID,
			Date:  a.ReleaseDate,
			Title: a.Name,
			Content: map[string]interface{}{
				"name":        a.Name,
				"description": a.Description,
				"cover_image": optional(a.CoverImage),
			},
		}
	case KindTour:
		t := e.Tour
		var end interface{}
		if t.EndDate != nil {
			end = t.EndDate.Format(dateLayout)
		}
		return Item{
			Kind:  KindTour,
			ID:    t.ID,
			Date:  t.StartDate,
			Title: t.Name,
			Content: map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"start_date":  t.StartDate.Format(dateLayout),
				"end_date":    end,
				"venues":      len(t.Venues),
			},
		}
	case KindQuote:
		q := e.Quote
		title := "言论"
		if q.Author != "" {
			title = q.Author + "的言论"
		}
		return Item{
			Kind:  KindQuote,
			ID:    q.ID,
			Date:  q.Date,
			Title: title,
			Content: map[string]interface{}{
				"text":   q.Text,
				"author": q.Author,
				"source": q.Source,
			},
		}
	case KindImage:
		img := e.Image
		return Item{
			Kind:  KindImage,
			ID:    img.ID,
			Date:  img.Date,
			Title: img.Title,
			Content: map[string]interface{}{
				"title":     img.Title,
				"caption":   img.Caption,
				"image_url": optional(img.Path),
			},
		}
	}
	return Item{Kind: e.Kind}
}

func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Store is the storage the timeline reads from.
type Store interface {
	ListAlbums(ctx context.Context) ([]models.Album, error)
	ListTours(ctx context.Context) ([]models.Tour, error)
	ListQuotes(ctx context.Context) ([]models.Quote, error)
	ListImages(ctx context.Context) ([]models.Image, error)
	AlbumsReleasedBetween(ctx context.Context, from, to time.Time) ([]models.Album, error)
	ToursOverlapping(ctx context.Context, from, to time.Time) ([]models.Tour, error)
	QuotesBetween(ctx context.Context, from, to time.Time) ([]models.Quote, error)
	ImagesBetween(ctx context.Context, from, to time.Time) ([]models.Image, error)
}

// Timeline assembles items from a Store.
type Timeline struct {
	store Store
}

func New(store Store) *Timeline {
	return &Timeline{store: store}
}

// All returns every item, newest first.
func (tl *Timeline) All(ctx context.Context) ([]Item, error) {
	var entries []Entry
	for _, k := range Kinds {
		e, err := tl.entries(ctx, k)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e...)
	}
	return project(entries), nil
}

// ByKind returns the items of one kind, newest first.
func (tl *Timeline) ByKind(ctx context.Context, kind Kind) ([]Item, error) {
	e, err := tl.entries(ctx, kind)
	if err != nil {
		return nil, err
	}
	return project(e), nil
}

// ByDateRange returns items dated within [from, to], newest first. Tours are
// included when they overlap the range; a tour without an end date overlaps
// every range after its start.
func (tl *Timeline) ByDateRange(ctx context.Context, from, to time.Time) ([]Item, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	var entries []Entry

	albums, err := tl.store.AlbumsReleasedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries = append(entries, albumEntries(albums)...)

	tours, err := tl.store.ToursOverlapping(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries = append(entries, tourEntries(tours)...)

	quotes, err := tl.store.QuotesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries = append(entries, quoteEntries(quotes)...)

	images, err := tl.store.ImagesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	entries = append(entries, imageEntries(images)...)

	return project(entries), nil
}

func (tl *Timeline) entries(ctx context.Context, kind Kind) ([]Entry, error) {
	switch kind {
	case KindAlbum:
		albums, err := tl.store.ListAlbums(ctx)
		return albumEntries(albums), err
	case KindTour:
		tours, err := tl.store.ListTours(ctx)
		return tourEntries(tours), err
	case KindQuote:
		quotes, err := tl.store.ListQuotes(ctx)
		return quoteEntries(quotes), err
	case KindImage:
		images, err := tl.store.ListImages(ctx)
		return imageEntries(images), err
	}
	return nil, nil
}

func albumEntries(albums []models.Album) []Entry {
	out := make([]Entry, len(albums))
	for i := range albums {
		out[i] = Entry{Kind: KindAlbum, Album: &albums[i]}
	}
	return out
}

func tourEntries(tours []models.Tour) []Entry {
	out := make([]Entry, len(tours))
	for i := range tours {
		out[i] = Entry{Kind: KindTour, Tour: &tours[i]}
	}
	return out
}

func quoteEntries(quotes []models.Quote) []Entry {
	out := make([]Entry, len(quotes))
	for i := range quotes {
		out[i] = Entry{Kind: KindQuote, Quote: &quotes[i]}
	}
	return out
}

func imageEntries(images []models.Image) []Entry {
	out := make([]Entry, len(images))
	for i := range images {
		out[i] = Entry{Kind: KindImage, Image: &images[i]}
	}
	return out
}

// project converts entries to items sorted newest first. Equal dates keep
// their input order.
func project(entries []Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item())
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items
}

package models

import "time"

// Display fallbacks for items whose text fields were never filled in.
const (
	DefaultTitle       = "Untitled Artwork"
	DefaultDescription = "Professional tattoo artistry"
)

// GalleryItem is one stored artwork record.
type GalleryItem struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"imageUrl"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Order       int       `json:"order"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Position returns the keyset position of the item in the public feed.
func (g *GalleryItem) Position() Position {
	return Position{CreatedAt: g.CreatedAt, ID: g.ID}
}

// View returns the public representation with display defaults applied.
func (g *GalleryItem) View() GalleryImage {
	v := GalleryImage{
		ID:          g.ID,
		ImageURL:    g.ImageURL,
		Title:       g.Title,
		Description: g.Description,
		Tags:        g.Tags,
		Order:       g.Order,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if v.Title == "" {
		v.Title = DefaultTitle
	}
	if v.Description == "" {
		v.Description = DefaultDescription
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v
}

// GalleryImage is what the public feed and the admin listing return.
type GalleryImage struct {
	ID          string    `json:"id"`
	ImageURL    string    `json:"imageUrl"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Position is a keyset cursor into the feed ordered by (CreatedAt, ID) descending.
type Position struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether g sorts after p in the feed, i.e. g is strictly
// older than p with ID as the tiebreaker.
func (p Position) Before(g *GalleryItem) bool {
	if g.CreatedAt.Equal(p.CreatedAt) {
		return g.ID < p.ID
	}
	return g.CreatedAt.Before(p.CreatedAt)
}

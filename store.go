package quoteboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/quoteboard/logger"
)

const (
	defaultPageSize = 5
	maxPageSize     = 20
)

// QuoteStore keeps quotes in a single JSON file. Every operation reloads
// the whole file and mutations rewrite it in full. There is no locking:
// two concurrent writers race and the last one wins.
type QuoteStore struct {
	path   string
	images *ImageDir
	log    *logger.Logger
	now    func() time.Time
}

// NewQuoteStore returns a store backed by path, creating its directory.
// Image files referenced by quotes live in images.
func NewQuoteStore(path string, images *ImageDir, log *logger.Logger) (*QuoteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &QuoteStore{
		path:   path,
		images: images,
		log:    log.WithComponent("quotes"),
		now:    time.Now,
	}, nil
}

// load reads all quotes. A missing or blank file is an empty store.
func (s *QuoteStore) load() ([]Quote, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read quotes: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	var quotes []Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return quotes, nil
}

func (s *QuoteStore) save(quotes []Quote) error {
	if quotes == nil {
		quotes = []Quote{}
	}
	data, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write quotes: %w", err)
	}
	return nil
}

// List filters by a case-insensitive substring of the text, sorts newest
// first and returns the requested page.
func (s *QuoteStore) List(q QuoteQuery) (QuotePage, error) {
	quotes, err := s.load()
	if errors.Is(err, ErrCorruptStore) {
		s.log.Errorw("Failed to parse quotes file, listing nothing", "path", s.path, "error", err)
		quotes, err = nil, nil
	}
	if err != nil {
		return QuotePage{}, err
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		filtered := quotes[:0]
		for _, quote := range quotes {
			if strings.Contains(strings.ToLower(quote.Text), search) {
				filtered = append(filtered, quote)
			}
		}
		quotes = filtered
	}

	sortQuotes(quotes)

	page, size := normalizePaging(q.Page, q.PageSize)
	result := QuotePage{Items: []Quote{}}
	// Pages past the end are empty; checked before multiplying so huge
	// page numbers cannot overflow.
	if page-1 >= (len(quotes)+size-1)/size {
		return result, nil
	}
	start := (page - 1) * size
	end := min(start+size, len(quotes))
	result.Items = quotes[start:end]
	result.HasMore = end < len(quotes)
	return result, nil
}

// Create validates and appends a new quote. imageFile is an already stored
// upload; it is removed again when validation fails.
func (s *QuoteStore) Create(text, date, imageFile string) (Quote, error) {
	text = strings.TrimSpace(text)
	date = strings.TrimSpace(date)
	if err := validateQuote(text, date); err != nil {
		s.images.Remove(imageFile)
		return Quote{}, err
	}

	quotes, err := s.load()
	if err != nil {
		s.images.Remove(imageFile)
		return Quote{}, err
	}

	now := s.now().UTC()
	quote := Quote{
		ID:        newQuoteID(now, quotes),
		Text:      text,
		Date:      date,
		ImageFile: imageFile,
		CreatedAt: now.Format(isoMillis),
	}
	quotes = append(quotes, quote)
	if err := s.save(quotes); err != nil {
		s.images.Remove(imageFile)
		return Quote{}, err
	}
	return quote, nil
}

// Update edits text and date, and swaps or removes the image. A replaced or
// removed image file is deleted on a best-effort basis.
func (s *QuoteStore) Update(id string, u QuoteUpdate) (Quote, error) {
	text := strings.TrimSpace(u.Text)
	date := strings.TrimSpace(u.Date)
	if err := validateQuote(text, date); err != nil {
		s.images.Remove(u.ImageFile)
		return Quote{}, err
	}

	quotes, err := s.load()
	if err != nil {
		s.images.Remove(u.ImageFile)
		return Quote{}, err
	}
	idx := indexOf(quotes, id)
	if idx < 0 {
		s.images.Remove(u.ImageFile)
		return Quote{}, ErrQuoteNotFound
	}

	quote := &quotes[idx]
	quote.Text = text
	quote.Date = date

	var orphan string
	switch {
	case u.ImageFile != "":
		orphan = quote.ImageFile
		quote.ImageFile = u.ImageFile
	case u.RemoveImage && quote.ImageFile != "":
		orphan = quote.ImageFile
		quote.ImageFile = ""
	}

	if err := s.save(quotes); err != nil {
		s.images.Remove(u.ImageFile)
		return Quote{}, err
	}
	s.images.Remove(orphan)
	return *quote, nil
}

// Delete removes a quote and its image file.
func (s *QuoteStore) Delete(id string) error {
	quotes, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(quotes, id)
	if idx < 0 {
		return ErrQuoteNotFound
	}
	removed := quotes[idx]
	quotes = append(quotes[:idx], quotes[idx+1:]...)
	if err := s.save(quotes); err != nil {
		return err
	}
	s.images.Remove(removed.ImageFile)
	return nil
}

func validateQuote(text, date string) error {
	if text == "" {
		return invalid("text", "text is required")
	}
	if date == "" {
		return invalid("date", "date is required")
	}
	return nil
}

func indexOf(quotes []Quote, id string) int {
	for i := range quotes {
		if quotes[i].ID == id {
			return i
		}
	}
	return -1
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// sortQuotes orders by parsed date descending, then by createdAt descending.
func sortQuotes(quotes []Quote) {
	keys := make([]int64, len(quotes))
	for i, q := range quotes {
		keys[i] = quoteTime(q)
	}
	sort.Sort(byDateDesc{quotes: quotes, keys: keys})
}

type byDateDesc struct {
	quotes []Quote
	keys   []int64
}

func (b byDateDesc) Len() int { return len(b.quotes) }

func (b byDateDesc) Less(i, j int) bool {
	if b.keys[i] != b.keys[j] {
		return b.keys[i] > b.keys[j]
	}
	return b.quotes[i].CreatedAt > b.quotes[j].CreatedAt
}

func (b byDateDesc) Swap(i, j int) {
	b.quotes[i], b.quotes[j] = b.quotes[j], b.quotes[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// quoteTime is the sort key of q in unix milliseconds: its date when that
// parses, else its creation time, else zero.
func quoteTime(q Quote) int64 {
	if t, ok := parseQuoteDate(q.Date); ok {
		return t.UnixMilli()
	}
	if t, ok := parseQuoteDate(q.CreatedAt); ok {
		return t.UnixMilli()
	}
	return 0
}

func newQuoteID(now time.Time, existing []Quote) string {
	prefix := strconv.FormatInt(now.UnixMilli(), 36)
	for {
		id := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
		if indexOf(existing, id) < 0 {
			return id
		}
	}
}

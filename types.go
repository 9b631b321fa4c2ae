package quoteboard

// Quote is a single submitted entry as persisted in the quotes file.
type Quote struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	ImageFile string `json:"imageFile,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// QuoteItem is the API view of a Quote.
type QuoteItem struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Date      string  `json:"date"`
	ImageURL  *string `json:"imageUrl"`
	CreatedAt string  `json:"createdAt"`
}

// Item converts a stored quote to its API representation.
func (q Quote) Item() QuoteItem {
	item := QuoteItem{
		ID:        q.ID,
		Text:      q.Text,
		Date:      q.Date,
		CreatedAt: q.CreatedAt,
	}
	if q.ImageFile != "" {
		u := uploadsPrefix + q.ImageFile
		item.ImageURL = &u
	}
	return item
}

// QuoteQuery selects a page of quotes.
type QuoteQuery struct {
	Search   string
	Page     int
	PageSize int
}

// QuotePage is one page of list results.
type QuotePage struct {
	Items   []Quote
	HasMore bool
}

// QuoteUpdate carries the admin edit of a quote. ImageFile is a freshly
// uploaded replacement, empty when none was sent.
type QuoteUpdate struct {
	Text        string
	Date        string
	ImageFile   string
	RemoveImage bool
}

// Settings is the persisted site settings singleton.
type Settings struct {
	UploadPassword        string  `json:"uploadPassword"`
	AdminPassword         string  `json:"adminPassword"`
	RequireUploadPassword bool    `json:"requireUploadPassword"`
	RequireHomePassword   bool    `json:"requireHomePassword"`
	SiteName              string  `json:"siteName"`
	DateFontSize          float64 `json:"dateFontSize"`
	TextFontSize          float64 `json:"textFontSize"`
	AdminPath             string  `json:"adminPath"`
}

// PublicSettings is the password-free subset of Settings served to clients.
type PublicSettings struct {
	RequireUploadPassword bool    `json:"requireUploadPassword"`
	RequireHomePassword   bool    `json:"requireHomePassword"`
	SiteName              string  `json:"siteName"`
	DateFontSize          float64 `json:"dateFontSize"`
	TextFontSize          float64 `json:"textFontSize"`
	AdminPath             string  `json:"adminPath"`
}

// Public strips the passwords.
func (s Settings) Public() PublicSettings {
	return PublicSettings{
		RequireUploadPassword: s.RequireUploadPassword,
		RequireHomePassword:   s.RequireHomePassword,
		SiteName:              s.SiteName,
		DateFontSize:          s.DateFontSize,
		TextFontSize:          s.TextFontSize,
		AdminPath:             s.AdminPath,
	}
}

// AdminLoginPath returns the login route under the current admin prefix.
func (s Settings) AdminLoginPath() string {
	return s.AdminPath + "/login"
}

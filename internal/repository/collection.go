package repository

import "time"

// Collection describes where one kind of document lives in each store.
// Remote documents are addressed by (Name, id).  Locally everything sits in
// a flat key space: "{LocalPrefix}_{date}" for scoped collections and
// "{LocalPrefix}" otherwise.  A bucketed collection keeps all documents of
// a key in one JSON object indexed by document id.
type Collection struct {
	Name        string // remote collection name
	LocalPrefix string // empty: remote only, nothing kept locally
	Scoped      bool   // local key carries the document date
	Bucketed    bool   // local value is {id: document}
	LatestKey   string // optional local key mirroring the last write
}

var (
	Orders         = Collection{Name: "orders", LocalPrefix: "orders", Scoped: true, Bucketed: true}
	BusinessStatus = Collection{Name: "businessStatus", LocalPrefix: "business", Scoped: true}
	DailySales     = Collection{Name: "dailySales", LocalPrefix: "dailySales", Scoped: true}
	SeatConfigs    = Collection{Name: "seatConfigs", LocalPrefix: "seats", Scoped: true, LatestKey: "seats_latest"}
	Menus          = Collection{Name: "menus", LocalPrefix: "menus", Bucketed: true}
	PaymentHistory = Collection{Name: "paymentHistory"}
)

// Key addresses one document.  Date is the business date the document is
// filed under; it is required for scoped collections.
type Key struct {
	ID   string
	Date string
}

// LocalKey returns the flat local store key holding the document, or ""
// when the collection is remote only.
func (c Collection) LocalKey(date string) string {
	if c.LocalPrefix == "" {
		return ""
	}
	if c.Scoped {
		return c.LocalPrefix + "_" + date
	}
	return c.LocalPrefix
}

// Document is the remote representation of a stored value.  Date and
// Status are lifted out of the JSON body so they can be indexed.
type Document struct {
	ID        string
	Date      string
	Status    string
	Body      []byte
	UpdatedAt time.Time
}

// Filter narrows a query.  Empty fields do not constrain the result.
// DateFrom and DateTo are inclusive YYYY-MM-DD bounds.
type Filter struct {
	DateFrom string
	DateTo   string
	Status   string
}

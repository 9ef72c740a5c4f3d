package models

// CatalogItem is the GORM model for a product in the catalog. Rows are
// loaded from the setup files on first start.
type CatalogItem struct {
	ID                int     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CatalogBrandID    int     `gorm:"not null" json:"catalog_brand_id"`
	CatalogTypeID     int     `gorm:"not null" json:"catalog_type_id"`
	Name              string  `gorm:"type:varchar(255);not null" json:"name"`
	Description       string  `gorm:"type:text" json:"description"`
	Price             float64 `gorm:"type:numeric(18,2);not null" json:"price"`
	PictureURI        string  `gorm:"type:varchar(1024)" json:"picture_uri"`
	AvailableStock    int     `json:"available_stock"`
	MaxStockThreshold int     `json:"max_stock_threshold"`
	OnReorder         bool    `json:"on_reorder"`
	RestockThreshold  int     `json:"restock_threshold"`
	// TagsJSON holds a serialized CatalogTags value
	TagsJSON string `gorm:"column:tags_json;type:text" json:"-"`
}

func (CatalogItem) TableName() string { return "catalog_items" }

// CatalogTags are the descriptive tags attached to a catalog item. The
// n-gram fields feed the product similarity search.
type CatalogTags struct {
	ProductID int      `json:"productId" validate:"required,gt=0"`
	Color     []string `json:"color,omitempty"`
	Size      []string `json:"size,omitempty"`
	Shape     []string `json:"shape,omitempty"`
	Quantity  []string `json:"quantity,omitempty"`
	AGram     string   `json:"agram,omitempty"`
	BGram     string   `json:"bgram,omitempty"`
	ABGram    string   `json:"abgram,omitempty"`
	YGram     string   `json:"ygram,omitempty"`
	ZGram     string   `json:"zgram,omitempty"`
	YZGram    string   `json:"yzgram,omitempty"`
}

// ProductSetDetails is the flattened view returned by the catalog search.
type ProductSetDetails struct {
	ID             int     `json:"id"`
	CatalogBrandID int     `json:"catalogBrandId"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	PictureURI     string  `json:"pictureUri"`
	Color          string  `json:"color"`
	Size           string  `json:"size"`
	Shape          string  `json:"shape"`
	Quantity       string  `json:"quantity"`
	AGram          string  `json:"agram"`
	BGram          string  `json:"bgram"`
	ABGram         string  `json:"abgram"`
	YGram          string  `json:"ygram"`
	ZGram          string  `json:"zgram"`
	YZGram         string  `json:"yzgram"`
}

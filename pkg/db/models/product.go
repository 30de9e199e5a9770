package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// Product is a sellable catalog entry. The order engine treats it as
// read-only; stock mutates only through settlement or explicit restock.
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Category       enums.ProductCategory `gorm:"column:category;not null"`
	Price          decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	TrackInventory bool                  `gorm:"column:track_inventory;not null;default:false"`
	Stock          int                   `gorm:"column:stock;not null;default:0"`
	MinStock       int                   `gorm:"column:min_stock;not null;default:0"`
	IsAvailable    bool                  `gorm:"column:is_available;not null;default:true"`
	PointsPrice    *int                  `gorm:"column:points_price"`
	AddonGroups    []AddonGroup          `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// AddonGroup bundles selectable options under a product.
type AddonGroup struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID     `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string        `gorm:"column:name;not null"`
	Required  bool          `gorm:"column:required;not null;default:false"`
	Multiple  bool          `gorm:"column:multiple;not null;default:false"`
	Position  int           `gorm:"column:position;not null;default:0"`
	Options   []AddonOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (AddonGroup) TableName() string { return "addon_groups" }

// AddonOption is one selectable choice inside an AddonGroup.
type AddonOption struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GroupID    uuid.UUID       `gorm:"column:group_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	PriceDelta decimal.Decimal `gorm:"column:price_delta;type:numeric(12,2);not null"`
	Position   int             `gorm:"column:position;not null;default:0"`
}

func (AddonOption) TableName() string { return "addon_options" }

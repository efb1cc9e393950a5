package domain

type CategoryType string

const (
	CategoryPopular       CategoryType = "popular"
	CategoryMostDemanding CategoryType = "most_demanding"
	CategoryNormal        CategoryType = "normal"
)

// CategoryTypes lists the accepted category types in display order.
var CategoryTypes = []CategoryType{CategoryPopular, CategoryMostDemanding, CategoryNormal}

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryPopular, CategoryMostDemanding, CategoryNormal:
		return true
	}
	return false
}

type Service struct {
	ID           string       `db:"id" json:"id"`
	CategoryName string       `db:"category_name" json:"category_name"`
	Image        *string      `db:"image" json:"image"`
	CategoryType CategoryType `db:"category_type" json:"category_type"`
	CreatedAt    string       `db:"created_at" json:"created_at"`
	UpdatedAt    string       `db:"updated_at" json:"updated_at"`
}

// AgentService is a listing owned by a single agent.
type AgentService struct {
	ID               string  `db:"id" json:"id"`
	UserID           string  `db:"user_id" json:"user_id"`
	ServiceName      string  `db:"service_name" json:"service_name"`
	ShortDescription string  `db:"short_description" json:"short_description"`
	MessageNumber    string  `db:"message_number" json:"message_number"`
	PhoneNumber      string  `db:"phone_number" json:"phone_number"`
	FeaturedImage    *string `db:"featured_image" json:"featured_image"`
	BannerImage      *string `db:"banner_image" json:"banner_image"`
	CategoryID       *string `db:"category_id" json:"category_id"`
	Hours            string  `db:"hours" json:"hours"`
	CreatedAt        string  `db:"created_at" json:"created_at"`
	UpdatedAt        string  `db:"updated_at" json:"updated_at"`
}

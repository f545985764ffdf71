package domain

import "time"

const MaxReviewComment = 500

type Review struct {
	ID          string    `json:"_id" bson:"_id,omitempty"`
	ProductID   string    `json:"product" bson:"product_id"`
	UserName    string    `json:"userName" bson:"user_name"`
	UserEmail   string    `json:"userEmail,omitempty" bson:"user_email,omitempty"`
	Rating      int       `json:"rating" bson:"rating"`
	Comment     string    `json:"comment,omitempty" bson:"comment,omitempty"`
	IsModerated bool      `json:"isModerated" bson:"is_moderated"`
	IsApproved  bool      `json:"isApproved" bson:"is_approved"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// RatingSummary is the approved-review aggregate for one product.
type RatingSummary struct {
	Average float64     `json:"averageRating"`
	Count   int         `json:"totalReviews"`
	ByStars map[int]int `json:"ratingDistribution"`
}

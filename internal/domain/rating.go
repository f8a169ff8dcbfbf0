package domain

import "time"

// MaxCommentLength is the longest comment kept on a rating, in characters.
const MaxCommentLength = 200

// Tag identifies one of the boolean quality dimensions a rater can tick.
type Tag int

const (
	TagGoodForCreators Tag = iota
	TagWorthMoney
	TagEasyToUse
	TagAccurate
	TagReliable
	TagBeginnerFriendly

	tagCount
)

// Tags lists every tag in presentation order.
var Tags = [tagCount]Tag{
	TagGoodForCreators,
	TagWorthMoney,
	TagEasyToUse,
	TagAccurate,
	TagReliable,
	TagBeginnerFriendly,
}

var tagNames = [tagCount]string{
	"good_for_creators",
	"worth_money",
	"easy_to_use",
	"accurate",
	"reliable",
	"beginner_friendly",
}

// String returns the snake_case column/field name of the tag.
func (t Tag) String() string {
	if t < 0 || t >= tagCount {
		return "unknown"
	}
	return tagNames[t]
}

// TagSet holds one boolean per Tag.
type TagSet [tagCount]bool

// Rating is a single anonymous rater's review of a tool.
type Rating struct {
	ID              string
	ToolID          string
	Stars           int
	Tags            TagSet
	Comment         *string
	FingerprintHash string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RatingSample is the projection of a rating needed for aggregation.
type RatingSample struct {
	ToolID string
	Stars  int
	Tags   TagSet
}

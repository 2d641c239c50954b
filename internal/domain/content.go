package domain

import "time"

type Video struct {
	VideoID     string    `json:"id" dynamodbav:"video_id"`
	OwnerID     string    `json:"ownerId" dynamodbav:"owner_id"`
	VideoFile   string    `json:"videoFile" dynamodbav:"video_file"`
	Thumbnail   string    `json:"thumbnail" dynamodbav:"thumbnail"`
	Title       string    `json:"title" dynamodbav:"title"`
	Description string    `json:"description" dynamodbav:"description"`
	Duration    float64   `json:"duration" dynamodbav:"duration"`
	Views       int       `json:"views" dynamodbav:"views"`
	IsPublished bool      `json:"isPublished" dynamodbav:"is_published"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updated_at"`
	Owner       *Owner    `json:"owner,omitempty" dynamodbav:"-"`
}

func (v *Video) OwnedBy() string { return v.OwnerID }
func (v *Video) Public() bool    { return v.IsPublished }

type Tweet struct {
	TweetID   string    `json:"id" dynamodbav:"tweet_id"`
	OwnerID   string    `json:"ownerId" dynamodbav:"owner_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	Images    []string  `json:"images,omitempty" dynamodbav:"images,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
	Owner     *Owner    `json:"owner,omitempty" dynamodbav:"-"`
}

func (t *Tweet) OwnedBy() string { return t.OwnerID }

// TweetDetail is a single tweet with its engagement counters for a viewer.
type TweetDetail struct {
	Tweet
	LikesCount    int  `json:"likesCount"`
	CommentsCount int  `json:"commentsCount"`
	IsLiked       bool `json:"isLiked"`
}

type Comment struct {
	CommentID string `json:"id" dynamodbav:"comment_id"`
	// ParentKey is "<subjectType>#<id>" of the video or tweet commented on.
	ParentKey string    `json:"-" dynamodbav:"parent_key"`
	OwnerID   string    `json:"ownerId" dynamodbav:"owner_id"`
	Content   string    `json:"content" dynamodbav:"content"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
	Owner     *Owner    `json:"owner,omitempty" dynamodbav:"-"`
}

func (c *Comment) OwnedBy() string { return c.OwnerID }

type Playlist struct {
	PlaylistID  string    `json:"id" dynamodbav:"playlist_id"`
	OwnerID     string    `json:"ownerId" dynamodbav:"owner_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	IsPublic    bool      `json:"isPublic" dynamodbav:"is_public"`
	Videos      []string  `json:"videos" dynamodbav:"videos,stringset,omitempty"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" dynamodbav:"updated_at"`
	Owner       *Owner    `json:"owner,omitempty" dynamodbav:"-"`
}

func (p *Playlist) OwnedBy() string { return p.OwnerID }
func (p *Playlist) Public() bool    { return p.IsPublic }

type PublishVideoRequest struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description" validate:"required"`
	VideoPath     string `json:"-" validate:"required"`
	ThumbnailPath string `json:"-" validate:"required"`
}

type UpdateVideoRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1"`
	Description   *string `json:"description" validate:"omitempty,min=1"`
	ThumbnailPath string  `json:"-"`
}

type CreateTweetRequest struct {
	Content    string   `json:"content"`
	ImagePaths []string `json:"-" validate:"max=10"`
}

type UpdateTweetRequest struct {
	Content string `json:"content" validate:"required"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type CreatePlaylistRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"isPublic"`
}

type UpdatePlaylistRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

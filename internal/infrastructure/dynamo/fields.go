package dynamo

// DynamoDB attribute and index names shared across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID       = "user_id"
	fieldOwnerID      = "owner_id"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
	fieldRefreshToken = "refresh_token"
	fieldSpent        = "spent"
	fieldRevoked      = "revoked"
	fieldIsPublished  = "is_published"
	fieldVideos       = "videos"
	fieldActorID      = "actor_id"
	fieldSubjectKey   = "subject_key"
	fieldParentKey    = "parent_key"
	fieldReporterID   = "reporter_id"
	fieldEmail        = "email"
	fieldUsername     = "username"

	indexUsername  = "username-index"
	indexEmail     = "email-index"
	indexOwner     = "owner_id-created_at-index"
	indexParent    = "parent_key-created_at-index"
	indexSubject   = "subject_key-actor_id-index"
	indexFamily    = "family_id-index"
	indexTokenUser = "user_id-index"
	indexReporter  = "reporter_id-index"
)

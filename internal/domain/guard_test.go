package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertOwner(t *testing.T) {
	v := &Video{VideoID: "v1", OwnerID: "alice"}

	assert.NoError(t, AssertOwner(v, "alice"))
	assert.ErrorIs(t, AssertOwner(v, "bob"), ErrForbidden)
	assert.ErrorIs(t, AssertOwner(v, ""), ErrForbidden)
}

func TestAssertVisible(t *testing.T) {
	public := &Playlist{OwnerID: "alice", IsPublic: true}
	private := &Playlist{OwnerID: "alice", IsPublic: false}

	assert.NoError(t, AssertVisible(public, "bob"))
	assert.NoError(t, AssertVisible(public, ""))
	assert.NoError(t, AssertVisible(private, "alice"))
	assert.ErrorIs(t, AssertVisible(private, "bob"), ErrForbidden)
}

func TestAssertVisible_UnpublishedVideo(t *testing.T) {
	v := &Video{OwnerID: "alice", IsPublished: false}
	assert.ErrorIs(t, AssertVisible(v, "bob"), ErrForbidden)
	assert.NoError(t, AssertVisible(v, "alice"))
}

func TestRelationKeys(t *testing.T) {
	r := NewRelation(RelationLike, "u1", SubjectVideo, "v1")
	assert.Equal(t, "like#video#v1", r.SubjectKey)
	assert.Equal(t, "like#video#", SubjectPrefix(RelationLike, SubjectVideo))
	assert.Equal(t, "tweet#t1", ContentKey(SubjectTweet, "t1"))
}

func TestValidReportIssue(t *testing.T) {
	assert.True(t, ValidReportIssue("Spam or misleading"))
	assert.False(t, ValidReportIssue("spam"))
}

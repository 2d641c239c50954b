package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/videotube-api/internal/domain"
)

// PlaylistRepo stores playlists; video ids live in a string set.
type PlaylistRepo struct {
	t table[domain.Playlist]
}

func NewPlaylistRepo(client API, tableName string) *PlaylistRepo {
	return &PlaylistRepo{t: table[domain.Playlist]{client: client, name: tableName, pk: "playlist_id", entity: "playlist"}}
}

func (r *PlaylistRepo) Put(ctx context.Context, p *domain.Playlist) error { return r.t.put(ctx, p) }

func (r *PlaylistRepo) Get(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	return r.t.get(ctx, playlistID)
}

func (r *PlaylistRepo) Update(ctx context.Context, playlistID string, updates map[string]interface{}) (*domain.Playlist, error) {
	return r.t.update(ctx, playlistID, stamped(updates))
}

func (r *PlaylistRepo) Delete(ctx context.Context, playlistID string) error {
	return r.t.delete(ctx, playlistID)
}

func (r *PlaylistRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Playlist, error) {
	return r.t.queryAll(ctx, ownerQuery(ownerID))
}

// AddVideo adds videoID to the set. A video already present yields ErrBadRequest.
func (r *PlaylistRepo) AddVideo(ctx context.Context, playlistID, videoID string) (*domain.Playlist, error) {
	return r.modifySet(ctx, playlistID, videoID,
		"ADD #v :set",
		"attribute_exists(playlist_id) AND NOT contains(#v, :vid)",
		"video already in playlist")
}

// RemoveVideo drops videoID from the set. A video not present yields ErrBadRequest.
func (r *PlaylistRepo) RemoveVideo(ctx context.Context, playlistID, videoID string) (*domain.Playlist, error) {
	return r.modifySet(ctx, playlistID, videoID,
		"DELETE #v :set",
		"attribute_exists(playlist_id) AND contains(#v, :vid)",
		"video not in playlist")
}

func (r *PlaylistRepo) modifySet(ctx context.Context, playlistID, videoID, expr, cond, conflictMsg string) (*domain.Playlist, error) {
	out, err := r.t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.t.name),
		Key:                      r.t.key(playlistID),
		UpdateExpression:         aws.String(expr + " SET #u = :now"),
		ConditionExpression:      aws.String(cond),
		ExpressionAttributeNames: map[string]string{"#v": fieldVideos, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":set": &types.AttributeValueMemberSS{Value: []string{videoID}},
			":vid": strVal(videoID),
			":now": strVal(time.Now().UTC().Format(time.RFC3339Nano)),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		// The playlist itself is checked by the caller first; a failed
		// condition here is about set membership.
		return nil, fmt.Errorf("%s: %w", conflictMsg, domain.ErrBadRequest)
	}
	if err != nil {
		return nil, err
	}
	var p domain.Playlist
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveVideoEverywhere drops videoID from every playlist that lists it.
// Playlists deleted in the meantime are skipped.
func (r *PlaylistRepo) RemoveVideoEverywhere(ctx context.Context, videoID string) error {
	holders, err := r.t.scanAll(ctx, &dynamodb.ScanInput{
		FilterExpression:          aws.String("contains(#v, :vid)"),
		ProjectionExpression:      aws.String("#id"),
		ExpressionAttributeNames:  map[string]string{"#v": fieldVideos, "#id": "playlist_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":vid": strVal(videoID)},
	})
	if err != nil {
		return fmt.Errorf("scan playlists for video: %w", err)
	}
	for _, p := range holders {
		_, err := r.t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                aws.String(r.t.name),
			Key:                      r.t.key(p.PlaylistID),
			UpdateExpression:         aws.String("DELETE #v :set SET #u = :now"),
			ConditionExpression:      aws.String("attribute_exists(playlist_id)"),
			ExpressionAttributeNames: map[string]string{"#v": fieldVideos, "#u": fieldUpdatedAt},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":set": &types.AttributeValueMemberSS{Value: []string{videoID}},
				":now": strVal(time.Now().UTC().Format(time.RFC3339Nano)),
			},
		})
		if err != nil && !isConditionFailed(err) {
			return fmt.Errorf("remove video from playlist %s: %w", p.PlaylistID, err)
		}
	}
	return nil
}

func (r *PlaylistRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	playlists, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(playlists))
	for _, p := range playlists {
		keys = append(keys, r.t.key(p.PlaylistID))
	}
	return batchDelete(ctx, r.t.client, r.t.name, keys)
}

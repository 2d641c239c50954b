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
	"github.com/videotube-api/internal/pkg/id"
)

// ReportRepo stores one report per (subject, reporter).
// PK: subject_key, SK: reporter_id. GSI on reporter_id.
type ReportRepo struct {
	t table[domain.Report]
}

func NewReportRepo(client API, tableName string) *ReportRepo {
	return &ReportRepo{t: table[domain.Report]{client: client, name: tableName, pk: fieldSubjectKey, entity: "report"}}
}

// Upsert writes the report in one UpdateItem: the first call creates the row,
// later calls from the same reporter only replace the issue.
func (r *ReportRepo) Upsert(ctx context.Context, rep *domain.Report) (*domain.Report, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	out, err := r.t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.t.name),
		Key:       compositeKey(fieldSubjectKey, rep.SubjectKey, fieldReporterID, rep.ReporterID),
		UpdateExpression: aws.String(
			"SET #issue = :issue, #updated = :now, #created = if_not_exists(#created, :now), " +
				"#rid = if_not_exists(#rid, :rid), #stype = :stype, #sid = :sid"),
		ExpressionAttributeNames: map[string]string{
			"#issue":   "issue",
			"#updated": fieldUpdatedAt,
			"#created": fieldCreatedAt,
			"#rid":     "report_id",
			"#stype":   "subject_type",
			"#sid":     "subject_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":issue": strVal(rep.Issue),
			":now":   strVal(now),
			":rid":   strVal(id.New()),
			":stype": strVal(string(rep.SubjectType)),
			":sid":   strVal(rep.SubjectID),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert report: %w", err)
	}
	var saved domain.Report
	if err := attributevalue.UnmarshalMap(out.Attributes, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ReportRepo) ListBySubject(ctx context.Context, subjectKey string) ([]domain.Report, error) {
	return r.t.queryAll(ctx, &dynamodb.QueryInput{
		KeyConditionExpression:    aws.String("#s = :s"),
		ExpressionAttributeNames:  map[string]string{"#s": fieldSubjectKey},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": strVal(subjectKey)},
	})
}

// DeleteBySubject removes every report filed against subjectKey.
func (r *ReportRepo) DeleteBySubject(ctx context.Context, subjectKey string) error {
	reps, err := r.ListBySubject(ctx, subjectKey)
	if err != nil {
		return err
	}
	return r.deleteAll(ctx, reps)
}

func (r *ReportRepo) DeleteByReporter(ctx context.Context, reporterID string) error {
	reps, err := r.t.queryAll(ctx, &dynamodb.QueryInput{
		IndexName:                 aws.String(indexReporter),
		KeyConditionExpression:    aws.String("#r = :r"),
		ExpressionAttributeNames:  map[string]string{"#r": fieldReporterID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":r": strVal(reporterID)},
	})
	if err != nil {
		return err
	}
	return r.deleteAll(ctx, reps)
}

func (r *ReportRepo) deleteAll(ctx context.Context, reps []domain.Report) error {
	keys := make([]map[string]types.AttributeValue, 0, len(reps))
	for _, rep := range reps {
		keys = append(keys, compositeKey(fieldSubjectKey, rep.SubjectKey, fieldReporterID, rep.ReporterID))
	}
	return batchDelete(ctx, r.t.client, r.t.name, keys)
}

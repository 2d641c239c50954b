package domain

import (
	"slices"
	"time"
)

var ReportIssues = []string{
	"Sexual content",
	"Spam or misleading",
	"Hateful or abusive content",
	"Violent content",
	"Copyright violation",
	"Privacy violation",
	"Harmful or dangerous acts",
	"Scams/fraud",
	"Others",
}

func ValidReportIssue(issue string) bool {
	return slices.Contains(ReportIssues, issue)
}

// Report is one user's complaint about one piece of content.
// PK: subject_key ("video#<id>"), SK: reporter_id.
type Report struct {
	SubjectKey  string      `json:"-" dynamodbav:"subject_key"`
	ReporterID  string      `json:"reportBy" dynamodbav:"reporter_id"`
	ReportID    string      `json:"id" dynamodbav:"report_id"`
	SubjectType SubjectType `json:"subjectType" dynamodbav:"subject_type"`
	SubjectID   string      `json:"subjectId" dynamodbav:"subject_id"`
	Issue       string      `json:"issue" dynamodbav:"issue"`
	CreatedAt   time.Time   `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" dynamodbav:"updated_at"`
}

type ReportRequest struct {
	Issue string `json:"issue" validate:"required"`
}

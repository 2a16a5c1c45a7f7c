package jira

import (
	"encoding/json"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
)

type webhookBody struct {
	WebhookEvent string           `json:"webhookEvent"`
	Issue        Issue            `json:"issue"`
	Changelog    models.Changelog `json:"changelog"`
}

// DecodeIssueMoved reads an issue-updated webhook delivery.
func DecodeIssueMoved(k FieldKeys, body []byte) (models.StatusTransitionEvent, error) {
	var w webhookBody
	if err := json.Unmarshal(body, &w); err != nil {
		return models.StatusTransitionEvent{}, errors.Wrap(models.ErrValidation, err.Error())
	}
	if w.Issue.ID == "" && w.Issue.Key == "" {
		return models.StatusTransitionEvent{}, errors.Wrap(models.ErrValidation, "webhook has no issue")
	}
	return models.StatusTransitionEvent{
		Issue:     DecodeIssue(k, w.Issue),
		Changelog: w.Changelog,
	}, nil
}

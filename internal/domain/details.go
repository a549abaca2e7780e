package domain

import (
	"encoding/json"
	"fmt"
)

// ActivityDetails is a closed tagged union keyed by Action: one variant
// per action shape. Decoding an unknown action fails instead of
// degrading to an unchecked map.
type ActivityDetails interface {
	isActivityDetails()
}

type ListCreatedDetails struct {
	Title string `json:"title"`
}

type ListUpdatedDetails struct {
	// Fields names the list attributes that changed.
	Fields []string `json:"fields"`
}

type ListDeletedDetails struct {
	Title string `json:"title"`
}

type URLAddedDetails struct {
	URLID   string `json:"urlId"`
	Address string `json:"address"`
	Title   string `json:"title,omitempty"`
}

type URLUpdatedDetails struct {
	URLID  string   `json:"urlId"`
	Fields []string `json:"fields"`
}

type URLDeletedDetails struct {
	URLID   string `json:"urlId"`
	Address string `json:"address"`
}

type URLsReorderedDetails struct {
	// Order is the full entry id list after the reorder.
	Order []string `json:"order"`
}

type URLClickedDetails struct {
	URLID  string `json:"urlId"`
	Clicks int64  `json:"clicks"`
}

type URLHealthChangedDetails struct {
	URLID string       `json:"urlId"`
	From  HealthStatus `json:"from"`
	To    HealthStatus `json:"to"`
}

type CommentAddedDetails struct {
	URLID   string `json:"urlId,omitempty"`
	Comment string `json:"comment"`
}

type CollaboratorAddedDetails struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type CollaboratorRemovedDetails struct {
	Email string `json:"email"`
}

type VisibilityChangedDetails struct {
	Public bool `json:"public"`
}

func (ListCreatedDetails) isActivityDetails()         {}
func (ListUpdatedDetails) isActivityDetails()         {}
func (ListDeletedDetails) isActivityDetails()         {}
func (URLAddedDetails) isActivityDetails()            {}
func (URLUpdatedDetails) isActivityDetails()          {}
func (URLDeletedDetails) isActivityDetails()          {}
func (URLsReorderedDetails) isActivityDetails()       {}
func (URLClickedDetails) isActivityDetails()          {}
func (URLHealthChangedDetails) isActivityDetails()    {}
func (CommentAddedDetails) isActivityDetails()        {}
func (CollaboratorAddedDetails) isActivityDetails()   {}
func (CollaboratorRemovedDetails) isActivityDetails() {}
func (VisibilityChangedDetails) isActivityDetails()   {}

// EncodeDetails serializes a detail payload for storage.
func EncodeDetails(d ActivityDetails) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity details: %w", err)
	}
	return data, nil
}

// DecodeDetails deserializes a detail payload. The action selects the
// variant; an action outside the closed enum is an error.
func DecodeDetails(action Action, raw []byte) (ActivityDetails, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var d ActivityDetails
	switch action {
	case ActionListCreated:
		d = &ListCreatedDetails{}
	case ActionListUpdated:
		d = &ListUpdatedDetails{}
	case ActionListDeleted:
		d = &ListDeletedDetails{}
	case ActionURLAdded:
		d = &URLAddedDetails{}
	case ActionURLUpdated:
		d = &URLUpdatedDetails{}
	case ActionURLDeleted:
		d = &URLDeletedDetails{}
	case ActionURLsReordered:
		d = &URLsReorderedDetails{}
	case ActionURLClicked:
		d = &URLClickedDetails{}
	case ActionURLHealthChanged:
		d = &URLHealthChangedDetails{}
	case ActionCommentAdded:
		d = &CommentAddedDetails{}
	case ActionCollaboratorAdded:
		d = &CollaboratorAddedDetails{}
	case ActionCollaboratorRemove:
		d = &CollaboratorRemovedDetails{}
	case ActionVisibilityChanged:
		d = &VisibilityChangedDetails{}
	default:
		return nil, fmt.Errorf("unknown activity action %q", action)
	}

	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("failed to decode %s details: %w", action, err)
	}
	return deref(d), nil
}

// deref returns the value variant so callers can type-switch on the
// same concrete types they encoded.
func deref(d ActivityDetails) ActivityDetails {
	switch v := d.(type) {
	case *ListCreatedDetails:
		return *v
	case *ListUpdatedDetails:
		return *v
	case *ListDeletedDetails:
		return *v
	case *URLAddedDetails:
		return *v
	case *URLUpdatedDetails:
		return *v
	case *URLDeletedDetails:
		return *v
	case *URLsReorderedDetails:
		return *v
	case *URLClickedDetails:
		return *v
	case *URLHealthChangedDetails:
		return *v
	case *CommentAddedDetails:
		return *v
	case *CollaboratorAddedDetails:
		return *v
	case *CollaboratorRemovedDetails:
		return *v
	case *VisibilityChangedDetails:
		return *v
	}
	return d
}

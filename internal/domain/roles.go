package domain

// Identity is the authenticated caller. A nil *Identity means anonymous.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Role is resolved per access from several overlapping sources; it is
// never stored as a single field.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// Capability is the derived permission set for one access. Never persisted.
type Capability struct {
	CanEdit    bool `json:"canEdit"`
	CanDelete  bool `json:"canDelete"`
	CanInvite  bool `json:"canInvite"`
	CanComment bool `json:"canComment"`
}

// CapabilityKind selects one capability for RequireCapability.
type CapabilityKind int

const (
	CapEdit CapabilityKind = iota
	CapDelete
	CapInvite
	CapComment
)

// RoleFor resolves the caller's role on a list. Resolution order:
// owner match, explicit role map, legacy collaborator set (resolves to
// editor for backward compatibility), then public viewer.
func RoleFor(list *List, identity *Identity) Role {
	if list == nil {
		return RoleNone
	}
	if identity != nil {
		if identity.ID == list.OwnerID {
			return RoleOwner
		}
		if r, ok := list.Roles[identity.Email]; ok {
			if r == RoleEditor || r == RoleViewer {
				return r
			}
		}
		for _, email := range list.LegacyCollaborators {
			if email == identity.Email {
				return RoleEditor
			}
		}
	}
	if list.Public {
		return RoleViewer
	}
	return RoleNone
}

// CapabilitiesFor derives the capability set for a role.
func CapabilitiesFor(role Role) Capability {
	return Capability{
		CanEdit:    role == RoleOwner || role == RoleEditor,
		CanDelete:  role == RoleOwner,
		CanInvite:  role == RoleOwner,
		CanComment: role != RoleNone,
	}
}

// RequireCapability is the single enforcement point for mutating
// operations. It returns ErrUnauthorized for anonymous callers lacking
// the capability and ErrPermissionDenied for authenticated ones.
func RequireCapability(list *List, identity *Identity, kind CapabilityKind) error {
	caps := CapabilitiesFor(RoleFor(list, identity))

	allowed := false
	switch kind {
	case CapEdit:
		allowed = caps.CanEdit
	case CapDelete:
		allowed = caps.CanDelete
	case CapInvite:
		allowed = caps.CanInvite
	case CapComment:
		allowed = caps.CanComment
	}
	if allowed {
		return nil
	}
	if identity == nil {
		return ErrUnauthorized
	}
	return ErrPermissionDenied
}

package policy

import "errors"

var ErrDenied = errors.New("you do not have permission to perform this action")

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource 有归属用户的对象
type Resource interface {
	OwnerID() uint64
}

// Private 只有归属者才能读取的对象（如通知）
type Private interface {
	Private() bool
}

// Authorizer 只认归属关系：改/删必须是本人，私有对象读也必须是本人
type Authorizer struct{}

func New() *Authorizer { return &Authorizer{} }

func (a *Authorizer) Authorize(actorID uint64, action Action, res Resource) error {
	if actorID == 0 || res == nil {
		return ErrDenied
	}
	switch action {
	case ActionRead:
		if p, ok := res.(Private); ok && p.Private() && res.OwnerID() != actorID {
			return ErrDenied
		}
		return nil
	case ActionUpdate, ActionDelete:
		if res.OwnerID() != actorID {
			return ErrDenied
		}
		return nil
	}
	return ErrDenied
}

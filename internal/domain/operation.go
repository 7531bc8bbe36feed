package domain

// Operation is the kind of action an identity wants to perform on an entity.
type Operation string

// Operations understood by the authorization engine.
const (
	OperationRead Operation = "READ"
	OperationEdit Operation = "EDIT"
)

// EntityType tags the kind of entity an operation targets.
type EntityType string

// Entity types understood by the authorization engine. Anything else is
// denied by default; unknown entities are never implicitly trusted.
const (
	EntityImplant  EntityType = "IMPLANT"
	EntityUser     EntityType = "USER"
	EntityGroup    EntityType = "GROUP"
	EntityTask     EntityType = "TASK"
	EntityTaskType EntityType = "TASK_TYPE"
)

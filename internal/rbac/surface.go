package rbac

// Surface is the registry of (resource, action) pairs the API references.
// Matrix validation checks completeness against it: a role/resource
// combination used by a route but missing from the matrix is a
// configuration error, never an implicit deny that slips through review.
type Surface struct {
	resources map[Resource][]Action
}

// NewSurface returns an empty registry.
func NewSurface() *Surface {
	return &Surface{resources: make(map[Resource][]Action)}
}

// Register records that the API exposes the given actions on a resource.
func (s *Surface) Register(resource Resource, actions ...Action) {
	s.resources[resource] = append(s.resources[resource], actions...)
}

// Resources returns the registered resources.
func (s *Surface) Resources() []Resource {
	out := make([]Resource, 0, len(s.resources))
	for res := range s.resources {
		out = append(out, res)
	}
	return out
}

// DefaultSurface lists every resource domain of the school API. The CRUD
// routers for business domains live outside this service; they authorize
// through the same evaluator, so their resources must be covered by the
// matrix before the process starts serving.
func DefaultSurface() *Surface {
	crud := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	s := NewSurface()
	s.Register(ResourceUsers, ActionCreate, ActionRead, ActionReadOwn, ActionUpdate, ActionUpdateOwn, ActionDelete)
	s.Register(ResourceStudents, append(crud, ActionReadOwn)...)
	s.Register(ResourceTeachers, crud...)
	s.Register(ResourceClasses, crud...)
	s.Register(ResourceSubjects, crud...)
	s.Register(ResourceAttendance, append(crud, ActionReadOwn)...)
	s.Register(ResourceGrades, append(crud, ActionReadOwn)...)
	s.Register(ResourceFinance, append(crud, ActionReadOwn)...)
	s.Register(ResourceDormitory, append(crud, ActionReadOwn)...)
	s.Register(ResourceLibrary, crud...)
	return s
}

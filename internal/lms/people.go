package lms

// InstructorSet accumulates deduplicated instructors during one
// normalization call. Every identity value seen for a person (id, username,
// email) indexes the same entry, so a record arriving later under a
// different key still merges instead of duplicating.
type InstructorSet struct {
	List  []Instructor
	index map[string]int
}

// NewInstructorSet creates an empty set. List starts non-nil because the
// instructors array is always present in the output, even when empty.
func NewInstructorSet() *InstructorSet {
	return &InstructorSet{List: []Instructor{}, index: map[string]int{}}
}

// Upsert adds or merges an instructor record. Records with no identity at
// all are dropped silently.
func (s *InstructorSet) Upsert(id, username, name, email string) {
	key, ok := IdentityKey(id, username, email)
	if !ok {
		return
	}
	if i, seen := s.index[key]; seen {
		MergeField(&s.List[i].ID, id)
		MergeField(&s.List[i].Username, username)
		MergeField(&s.List[i].Name, name)
		MergeField(&s.List[i].Email, email)
		s.register(i, id, username, email)
		return
	}
	s.List = append(s.List, Instructor{ID: id, Username: username, Name: name, Email: email})
	s.register(len(s.List)-1, id, username, email)
}

// Contains reports whether any of the given identity values belongs to an
// instructor already in the set.
func (s *InstructorSet) Contains(values ...string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := s.index[v]; ok {
			return true
		}
	}
	return false
}

func (s *InstructorSet) register(i int, keys ...string) {
	for _, k := range keys {
		if k != "" {
			s.index[k] = i
		}
	}
}

// LearnerSet is the learner-side counterpart of InstructorSet.
type LearnerSet struct {
	List  []Learner
	index map[string]int
}

func NewLearnerSet() *LearnerSet {
	return &LearnerSet{index: map[string]int{}}
}

// Upsert adds or merges a learner record and returns its index into List.
// Merging prefers the most recently seen non-empty field values.
func (s *LearnerSet) Upsert(id, username, name, email, timeEnrolled string) int {
	if i, ok := s.find(id, username, email); ok {
		MergeField(&s.List[i].ID, id)
		MergeField(&s.List[i].Username, username)
		MergeField(&s.List[i].Name, name)
		MergeField(&s.List[i].Email, email)
		MergeField(&s.List[i].TimeEnrolled, timeEnrolled)
		s.register(i, id, username, email)
		return i
	}
	s.List = append(s.List, Learner{
		ID: id, Username: username, Name: name, Email: email,
		TimeEnrolled: timeEnrolled,
		Assignments:  []Assignment{},
	})
	i := len(s.List) - 1
	s.register(i, id, username, email)
	return i
}

func (s *LearnerSet) find(values ...string) (int, bool) {
	for _, v := range values {
		if v == "" {
			continue
		}
		if i, ok := s.index[v]; ok {
			return i, true
		}
	}
	return 0, false
}

func (s *LearnerSet) register(i int, keys ...string) {
	for _, k := range keys {
		if k != "" {
			s.index[k] = i
		}
	}
}

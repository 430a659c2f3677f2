package lms

import "strings"

// IdentityKey picks the canonical identity key for a person record:
// id first, then username, then email. The second return is false when the
// record has none of the three — such records cannot be represented and
// are dropped by every adapter.
func IdentityKey(id, username, email string) (string, bool) {
	for _, candidate := range []string{id, username, email} {
		if candidate != "" {
			return candidate, true
		}
	}
	return "", false
}

// staffRoleMarkers are matched case-insensitively as substrings against
// role strings from any source (enrollment types, Moodle role shortnames,
// edX role fields).
var staffRoleMarkers = []string{"instructor", "teacher", "staff", "admin"}

// IsStaffRole reports whether a role string marks its holder as staff.
func IsStaffRole(role string) bool {
	if role == "" {
		return false
	}
	lower := strings.ToLower(role)
	for _, marker := range staffRoleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// MergeField overwrites *dst with src only when src is non-empty. Merging
// duplicate person records prefers the most recently seen non-empty value
// and never drops a known field to fill it with an empty one.
func MergeField(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// identitySet collects every identity-bearing value of the instructor list
// for collision checks.
type identitySet map[string]struct{}

func (s identitySet) add(values ...string) {
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
}

func (s identitySet) containsAny(values ...string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := s[v]; ok {
			return true
		}
	}
	return false
}

// InstructorIdentities builds the collision set from a final instructor
// list: ids, usernames and emails all count.
func InstructorIdentities(instructors []Instructor) map[string]struct{} {
	set := make(identitySet)
	for _, ins := range instructors {
		set.add(ins.ID, ins.Username, ins.Email)
	}
	return set
}

// DropInstructorCollisions removes learner entries whose id, username or
// email matches any instructor identity. Instructor identity always wins;
// this is the post-hoc sweep run after both lists are assembled.
func DropInstructorCollisions(instructors []Instructor, learners []Learner) []Learner {
	if len(learners) == 0 || len(instructors) == 0 {
		return learners
	}
	set := identitySet(InstructorIdentities(instructors))
	kept := learners[:0]
	for _, l := range learners {
		if set.containsAny(l.ID, l.Username, l.Email) {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

package profile

import "github.com/elliotchance/pie/v2"

type EducationLevel string

const (
	EducationUnset EducationLevel = ""
	Education10th  EducationLevel = "10th"
	Education12th  EducationLevel = "12th"
	EducationUG    EducationLevel = "UG"
	EducationPG    EducationLevel = "PG"
)

type Stream string

const (
	StreamUnset    Stream = ""
	StreamScience  Stream = "Science"
	StreamCommerce Stream = "Commerce"
	StreamArts     Stream = "Arts"
)

// Profile is what the conversation so far says about the student. It is
// derived from scratch on every call and never stored.
type Profile struct {
	EducationLevel  EducationLevel
	Stream          Stream
	ChosenDirection string
	// RejectedTopics has set semantics and keeps first-seen order.
	RejectedTopics []string
	// RejectionCount counts rejecting utterances, with or without a known topic.
	RejectionCount int
	InterestNotes  []string
	// Recent is the window of turns the profile was derived from.
	Recent []Turn
}

// PartiallyKnown reports whether the student has told us anything to build on:
// a level, a stream, or at least one refusal.
func (p *Profile) PartiallyKnown() bool {
	return p.EducationLevel != EducationUnset || p.Stream != StreamUnset || p.RejectionCount > 0
}

func (p *Profile) HasDirection() bool {
	return p.ChosenDirection != ""
}

func (p *Profile) addRejectedTopic(topic string) {
	if pie.Contains(p.RejectedTopics, topic) {
		return
	}

	p.RejectedTopics = append(p.RejectedTopics, topic)
}

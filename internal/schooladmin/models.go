package schooladmin

import (
	"bytes"
	"encoding/json"
)

// Class is one class (grade) with its sections and subjects.
type Class struct {
	ID            string    `json:"_id" yaml:"id"`
	ClassNumber   int       `json:"classNumber" yaml:"classNumber"`
	Stream        string    `json:"stream,omitempty" yaml:"stream,omitempty"`
	Sections      []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
	Subjects      []Subject `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	AcademicYear  string    `json:"academicYear,omitempty" yaml:"academicYear,omitempty"`
	TotalStudents int       `json:"totalStudents" yaml:"totalStudents"`
}

type Section struct {
	Name         string     `json:"name" yaml:"name"`
	Capacity     int        `json:"capacity" yaml:"capacity"`
	ClassTeacher TeacherRef `json:"classTeacher,omitempty" yaml:"classTeacher,omitempty"`
}

type Subject struct {
	Name       string   `json:"name" yaml:"name"`
	Code       string   `json:"code,omitempty" yaml:"code,omitempty"`
	IsOptional bool     `json:"isOptional" yaml:"isOptional"`
	Teachers   []string `json:"teachers,omitempty" yaml:"teachers,omitempty"`
}

// TeacherRef is a class teacher reference. List responses carry the bare id,
// detail responses the populated teacher.
type TeacherRef struct {
	ID   string `yaml:"id,omitempty"`
	Name string `yaml:"name,omitempty"`
}

func (r *TeacherRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = TeacherRef{}
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var t struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	r.ID, r.Name = t.ID, t.Name
	return nil
}

func (r TeacherRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

type Teacher struct {
	ID      string `json:"_id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

type Student struct {
	ID         string `json:"_id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email,omitempty"`
	ClassID    string `json:"classId,omitempty" yaml:"classId,omitempty"`
	Section    string `json:"section,omitempty" yaml:"section,omitempty"`
	RollNumber string `json:"rollNumber,omitempty" yaml:"rollNumber,omitempty"`
}

// ClassStats are the school-wide class counters.
type ClassStats struct {
	Total         int `json:"total" yaml:"total"`
	TotalSections int `json:"totalSections" yaml:"totalSections"`
	TotalSubjects int `json:"totalSubjects" yaml:"totalSubjects"`
	TotalStudents int `json:"totalStudents" yaml:"totalStudents"`
}

// ClassFilter narrows ListClasses. Empty fields mean "all".
type ClassFilter struct {
	Grade  string
	Stream string
}

// NewClass is the create-class form.
type NewClass struct {
	ClassNumber  int          `json:"classNumber" validate:"required,min=1,max=12"`
	Stream       string       `json:"stream,omitempty" validate:"omitempty,oneof=Science Commerce Arts"`
	Sections     []NewSection `json:"sections" validate:"required,min=1,dive"`
	Subjects     []NewSubject `json:"subjects" validate:"dive"`
	AcademicYear string       `json:"academicYear" validate:"required,len=4,numeric"`
}

type NewSection struct {
	Name         string `json:"name" validate:"required,max=2"`
	Capacity     int    `json:"capacity" validate:"required,min=1,max=200"`
	ClassTeacher string `json:"classTeacher,omitempty"`
}

type NewSubject struct {
	Name       string   `json:"name" validate:"required"`
	Code       string   `json:"code,omitempty"`
	IsOptional bool     `json:"isOptional"`
	Teachers   []string `json:"teachers,omitempty"`
}

// DefaultSections is the form's initial layout: one section "A" of 40 seats.
func DefaultSections() []NewSection {
	return []NewSection{{Name: "A", Capacity: 40}}
}

type addStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,required"`
	Section    string   `json:"section,omitempty"`
}

// Overview is everything the class-management screen shows at once.
type Overview struct {
	Classes  []Class    `yaml:"classes"`
	Teachers []Teacher  `yaml:"teachers"`
	Students []Student  `yaml:"students"`
	Stats    ClassStats `yaml:"stats"`
}

package model

// SpecialtyAll is the filter value that disables specialty filtering.
const SpecialtyAll = "all"

// KnownSpecialties are the specialties offered in the directory filter.
var KnownSpecialties = []string{
	"Cardiology",
	"Orthopedics",
	"Dermatology",
	"General Medicine",
	"Neurology",
}

type Doctor struct {
	ID           int64                `json:"id" bson:"id"`
	Name         string               `json:"name" bson:"name"`
	Specialty    string               `json:"specialty" bson:"specialty"`
	Department   string               `json:"department" bson:"department"`
	CreatedAt    string               `json:"created_at,omitempty" bson:"created_at,omitempty"`
	Availability []DoctorAvailability `json:"availability,omitempty" bson:"availability,omitempty"`
}

type DoctorAvailability struct {
	ID          int64  `json:"id" bson:"id"`
	DoctorID    int64  `json:"doctor_id" bson:"doctor_id"`
	DayOfWeek   int    `json:"day_of_week" bson:"day_of_week"`
	StartTime   string `json:"start_time" bson:"start_time"`
	EndTime     string `json:"end_time" bson:"end_time"`
	IsAvailable bool   `json:"is_available" bson:"is_available"`
}

type DoctorCreate struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Specialty  string `json:"specialty" validate:"required,min=2,max=100"`
	Department string `json:"department" validate:"required,min=2,max=100"`
}

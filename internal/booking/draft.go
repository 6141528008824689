package booking

import (
	"sort"

	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

const (
	FieldDoctor          = "selectedDoctorId"
	FieldPatientName     = "patientName"
	FieldPatientPhone    = "patientPhone"
	FieldAppointmentDate = "appointmentDate"
	FieldAppointmentTime = "appointmentTime"
	FieldNotes           = "notes"
)

// Draft is the in-progress booking form. Setters normalize input and mark
// the field dirty; nothing is validated until Validate is called.
type Draft struct {
	SelectedDoctorID *int64 `json:"selectedDoctorId,omitempty" bson:"selected_doctor_id,omitempty" validate:"required"`
	PatientName      string `json:"patientName" bson:"patient_name" validate:"notblank"`
	PatientPhone     string `json:"patientPhone" bson:"patient_phone" validate:"notblank"`
	AppointmentDate  string `json:"appointmentDate" bson:"appointment_date" validate:"notblank,isodate,notpast"`
	AppointmentTime  string `json:"appointmentTime" bson:"appointment_time" validate:"timeslot"`
	Notes            string `json:"notes,omitempty" bson:"notes,omitempty"`

	dirty map[string]bool
}

func (d *Draft) SetPatientName(v string) {
	d.PatientName = sanitizer.NormalizeName(v)
	d.markDirty(FieldPatientName)
}

func (d *Draft) SetPatientPhone(v string) {
	d.PatientPhone = sanitizer.Trim(v)
	d.markDirty(FieldPatientPhone)
}

func (d *Draft) SetAppointmentDate(v string) {
	d.AppointmentDate = sanitizer.Trim(v)
	d.markDirty(FieldAppointmentDate)
}

func (d *Draft) SetAppointmentTime(v string) {
	d.AppointmentTime = sanitizer.Trim(v)
	d.markDirty(FieldAppointmentTime)
}

func (d *Draft) SetNotes(v string) {
	d.Notes = sanitizer.Trim(v)
	d.markDirty(FieldNotes)
}

func (d *Draft) setDoctor(id int64) {
	d.SelectedDoctorID = &id
	d.markDirty(FieldDoctor)
}

func (d *Draft) clearDoctor() {
	d.SelectedDoctorID = nil
}

func (d *Draft) markDirty(field string) {
	if d.dirty == nil {
		d.dirty = make(map[string]bool)
	}
	d.dirty[field] = true
}

// Dirty reports whether field has been touched since the draft was created.
func (d *Draft) Dirty(field string) bool {
	return d.dirty[field]
}

func (d *Draft) DirtyFields() []string {
	fields := make([]string, 0, len(d.dirty))
	for f := range d.dirty {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a deep copy; drafts are never shared between workflows.
func (d Draft) Clone() Draft {
	out := d
	if d.SelectedDoctorID != nil {
		id := *d.SelectedDoctorID
		out.SelectedDoctorID = &id
	}
	out.dirty = nil
	for f := range d.dirty {
		out.markDirty(f)
	}
	return out
}

// bookingRequest applies the setters' normalization again, since a restored
// draft never went through them and the validators accept padded values.
func (d Draft) bookingRequest(doctor model.Doctor) model.BookingRequest {
	return model.BookingRequest{
		DoctorName:      doctor.Name,
		PatientName:     sanitizer.NormalizeName(d.PatientName),
		PatientPhone:    sanitizer.Trim(d.PatientPhone),
		AppointmentDate: sanitizer.Trim(d.AppointmentDate),
		AppointmentTime: sanitizer.Trim(d.AppointmentTime),
		Notes:           sanitizer.Trim(d.Notes),
	}
}

// DraftUpdate carries a partial form edit; nil fields are left alone.
type DraftUpdate struct {
	PatientName     *string `json:"patientName,omitempty"`
	PatientPhone    *string `json:"patientPhone,omitempty"`
	AppointmentDate *string `json:"appointmentDate,omitempty"`
	AppointmentTime *string `json:"appointmentTime,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

func (u DraftUpdate) Empty() bool {
	return u.PatientName == nil && u.PatientPhone == nil && u.AppointmentDate == nil &&
		u.AppointmentTime == nil && u.Notes == nil
}

func (u DraftUpdate) Apply(d *Draft) {
	if u.PatientName != nil {
		d.SetPatientName(*u.PatientName)
	}
	if u.PatientPhone != nil {
		d.SetPatientPhone(*u.PatientPhone)
	}
	if u.AppointmentDate != nil {
		d.SetAppointmentDate(*u.AppointmentDate)
	}
	if u.AppointmentTime != nil {
		d.SetAppointmentTime(*u.AppointmentTime)
	}
	if u.Notes != nil {
		d.SetNotes(*u.Notes)
	}
}

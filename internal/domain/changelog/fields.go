package changelog

import (
	"github.com/Zaqwedo/denta-crm/internal/domain/patient"
)

// Field labels are stored in the audit trail exactly as the desk staff sees
// them in the history view.
const (
	FieldName            = "Имя"
	FieldPhone           = "Телефон"
	FieldBirthDate       = "Дата рождения"
	FieldAppointmentDate = "Дата записи"
	FieldAppointmentTime = "Время записи"
	FieldStatus          = "Статус"
	FieldDoctor          = "Доктор"
	FieldNurse           = "Ассистент"
	FieldTeeth           = "Зубы"
	FieldComments        = "Комментарий"
	FieldEmoji           = "Эмодзи"
	FieldNotes           = "Заметки"
)

type fieldAccessor struct {
	label string
	get   func(r *patient.Record) *string
	set   func(r *patient.Record, v *string)
}

// trackedFields lists every audited field in the order entries are written.
var trackedFields = []fieldAccessor{
	{
		label: FieldName,
		get:   func(r *patient.Record) *string { return &r.FullName },
		set: func(r *patient.Record, v *string) {
			if v != nil {
				r.FullName = *v
			}
		},
	},
	{
		label: FieldPhone,
		get:   func(r *patient.Record) *string { return r.Phone },
		set:   func(r *patient.Record, v *string) { r.Phone = v },
	},
	{
		label: FieldBirthDate,
		get:   func(r *patient.Record) *string { return r.BirthDate },
		set:   func(r *patient.Record, v *string) { r.BirthDate = v },
	},
	{
		label: FieldAppointmentDate,
		get:   func(r *patient.Record) *string { return r.AppointmentDate },
		set:   func(r *patient.Record, v *string) { r.AppointmentDate = v },
	},
	{
		label: FieldAppointmentTime,
		get:   func(r *patient.Record) *string { return r.AppointmentTime },
		set:   func(r *patient.Record, v *string) { r.AppointmentTime = v },
	},
	{
		label: FieldStatus,
		get: func(r *patient.Record) *string {
			s := string(r.Status)
			return &s
		},
		set: func(r *patient.Record, v *string) {
			if v != nil {
				r.Status = patient.Status(*v)
			}
		},
	},
	{
		label: FieldDoctor,
		get:   func(r *patient.Record) *string { return r.Doctor },
		set:   func(r *patient.Record, v *string) { r.Doctor = v },
	},
	{
		label: FieldNurse,
		get:   func(r *patient.Record) *string { return r.Nurse },
		set:   func(r *patient.Record, v *string) { r.Nurse = v },
	},
	{
		label: FieldTeeth,
		get:   func(r *patient.Record) *string { return r.Teeth },
		set:   func(r *patient.Record, v *string) { r.Teeth = v },
	},
	{
		label: FieldComments,
		get:   func(r *patient.Record) *string { return r.Comments },
		set:   func(r *patient.Record, v *string) { r.Comments = v },
	},
	{
		label: FieldEmoji,
		get:   func(r *patient.Record) *string { return r.Emoji },
		set:   func(r *patient.Record, v *string) { r.Emoji = v },
	},
	{
		label: FieldNotes,
		get:   func(r *patient.Record) *string { return r.Notes },
		set:   func(r *patient.Record, v *string) { r.Notes = v },
	},
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Diff produces one entry per tracked field whose value differs between old
// and updated. Nil and empty string compare equal so clearing an already
// empty field writes nothing.
func Diff(old, updated *patient.Record) []*Entry {
	var entries []*Entry
	for _, f := range trackedFields {
		oldVal, newVal := f.get(old), f.get(updated)
		if deref(oldVal) == deref(newVal) {
			continue
		}
		entries = append(entries, &Entry{
			PatientID: old.ID,
			FieldName: f.label,
			OldValue:  copyVal(oldVal),
			NewValue:  copyVal(newVal),
		})
	}
	return entries
}

func copyVal(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

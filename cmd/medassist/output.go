package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"medassist/pkg/model"
)

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) printDoctors(doctors []model.Doctor) error {
	if e.json {
		if doctors == nil {
			doctors = []model.Doctor{}
		}
		return e.printJSON(doctors)
	}
	if len(doctors) == 0 {
		fmt.Fprintln(e.out, "No doctors found.")
		return nil
	}

	tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tDEPARTMENT")
	for _, d := range doctors {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Name, d.Specialty, d.Department)
	}
	return tw.Flush()
}

func (e *env) printAppointments(appointments []model.Appointment) error {
	if e.json {
		if appointments == nil {
			appointments = []model.Appointment{}
		}
		return e.printJSON(appointments)
	}
	if len(appointments) == 0 {
		fmt.Fprintln(e.out, "No appointments.")
		return nil
	}

	tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOCTOR\tDATE\tTIME\tSTATUS")
	for _, a := range appointments {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", a.ID, a.DoctorID, a.Date(), a.Time(), a.Status)
	}
	return tw.Flush()
}

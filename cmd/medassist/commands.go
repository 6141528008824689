package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"medassist/internal/assistant/service"
	"medassist/internal/booking"
	"medassist/internal/chat"
	"medassist/internal/directory"
	"medassist/pkg/model"
)

func doctorsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "doctors",
		Usage: "list doctors, optionally filtered",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "match name, specialty or department"},
			&cli.StringFlag{Name: "specialty", Value: model.SpecialtyAll},
		},
		Action: func(c *cli.Context) error {
			dir := directory.New(e.clinic.DoctorClient, e.log, nil)
			if _, err := dir.Load(c.Context); err != nil {
				return err
			}
			return e.printDoctors(dir.Filter(c.String("search"), c.String("specialty")))
		},
	}
}

func specialtyCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "specialty",
		Usage:     "ask the clinic for doctors of one specialty",
		ArgsUsage: "SPECIALTY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one specialty is required", 2)
			}
			doctors, err := e.clinic.DoctorClient.GetBySpecialty(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return e.printDoctors(doctors)
		},
	}
}

func addDoctorCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "add-doctor",
		Usage: "register a doctor with the clinic",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "specialty", Required: true},
			&cli.StringFlag{Name: "department", Required: true},
		},
		Action: func(c *cli.Context) error {
			dir := directory.New(e.clinic.DoctorClient, e.log, nil)
			svc := service.NewDirectoryService(dir, e.clinic.DoctorClient, e.log)
			doctor, err := svc.Create(c.Context, model.DoctorCreate{
				Name:       c.String("name"),
				Specialty:  c.String("specialty"),
				Department: c.String("department"),
			})
			if err != nil {
				return err
			}
			return e.printDoctors([]model.Doctor{*doctor})
		},
	}
}

func appointmentsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "appointments",
		Usage: "list appointments",
		Action: func(c *cli.Context) error {
			appointments, err := e.clinic.AppointmentClient.GetAll(c.Context)
			if err != nil {
				return err
			}
			return e.printAppointments(appointments)
		},
	}
}

func slotsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "list bookable time slots",
		Action: func(c *cli.Context) error {
			if e.json {
				return e.printJSON(booking.TimeSlots())
			}
			fmt.Fprintln(e.out, strings.Join(booking.TimeSlots(), " "))
			return nil
		},
	}
}

func availabilityCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "availability",
		Usage: "ask which doctors are free at a date and time",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "doctor", Usage: "only this doctor id"},
			&cli.StringFlag{Name: "date", Required: true, Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "time", Required: true, Usage: "HH:MM"},
		},
		Action: func(c *cli.Context) error {
			svc := service.NewAvailabilityService(e.clinic.ChatClient)

			var (
				reply *model.ChatReply
				err   error
			)
			if id := c.Int64("doctor"); id > 0 {
				reply, err = svc.ForDoctor(c.Context, id, c.String("date"), c.String("time"))
			} else {
				reply, err = svc.AnyDoctor(c.Context, c.String("date"), c.String("time"))
			}
			if err != nil {
				return err
			}
			if e.json {
				return e.printJSON(reply)
			}
			fmt.Fprintln(e.out, reply.Response)
			return nil
		},
	}
}

// bookCommand runs one booking workflow non-interactively: select the doctor,
// fill the form from flags and submit.
func bookCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "book an appointment",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "doctor", Required: true, Usage: "doctor id"},
			&cli.StringFlag{Name: "name", Usage: "patient name"},
			&cli.StringFlag{Name: "phone", Usage: "patient phone"},
			&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD"},
			&cli.StringFlag{Name: "time", Usage: "HH:MM"},
			&cli.StringFlag{Name: "notes"},
			&cli.StringFlag{Name: "time-zone", Value: "Local", EnvVars: []string{"CLINIC_TIME_ZONE"}},
		},
		Action: func(c *cli.Context) error {
			loc, err := time.LoadLocation(c.String("time-zone"))
			if err != nil {
				return fmt.Errorf("invalid time zone: %w", err)
			}

			dir := directory.New(e.clinic.DoctorClient, e.log, nil)
			if _, err := dir.Load(c.Context); err != nil {
				return err
			}
			wf := booking.NewWorkflow(dir, e.clinic.AppointmentClient,
				booking.WithLogger(e.log),
				booking.WithValidator(booking.NewValidator(loc, time.Now)),
			)

			if err := wf.SelectDoctorByID(c.Int64("doctor")); err != nil {
				return err
			}
			if err := wf.Edit(func(d *booking.Draft) {
				d.SetPatientName(c.String("name"))
				d.SetPatientPhone(c.String("phone"))
				d.SetAppointmentDate(c.String("date"))
				d.SetAppointmentTime(c.String("time"))
				d.SetNotes(c.String("notes"))
			}); err != nil {
				return err
			}

			appointment, err := wf.Submit(c.Context)
			var fieldErrs booking.FieldErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					fmt.Fprintf(e.out, "  %s: %s\n", fe.Field, fe.Message)
				}
				return cli.Exit("booking form is invalid", 2)
			}
			if err != nil {
				return err
			}

			if e.json {
				return e.printJSON(wf.Snapshot())
			}
			snapshot := wf.Snapshot()
			fmt.Fprintf(e.out, "Booked appointment #%d with %s on %s at %s (%s)\n",
				appointment.ID, snapshot.Doctor.Name,
				snapshot.Draft.AppointmentDate, snapshot.Draft.AppointmentTime,
				appointment.Status,
			)
			return nil
		},
	}
}

// chatCommand is a line-oriented chat. "/clear" starts a new conversation
// and "/quit" or end of input leaves.
func chatCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "talk to the clinic assistant",
		Action: func(c *cli.Context) error {
			session := chat.NewSession(e.clinic.ChatClient, e.log)
			fmt.Fprintln(e.out, "Try: "+strings.Join(chat.QuickActions, " | "))

			scanner := bufio.NewScanner(e.in)
			for {
				fmt.Fprint(e.out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(e.out)
					return scanner.Err()
				}

				switch line := strings.TrimSpace(scanner.Text()); line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/clear":
					session.Clear()
					fmt.Fprintln(e.out, "(conversation cleared)")
				default:
					reply, err := session.Send(c.Context, line)
					if err != nil {
						fmt.Fprintln(e.out, "! "+err.Error())
						continue
					}
					fmt.Fprintln(e.out, reply.Content)
				}
			}
		},
	}
}

package errors

import "fmt"

type GroupNameError struct {
	Name string
}

func (err GroupNameError) Error() string {
	return fmt.Sprintf("no such motor group %s", err.Name)
}

// BusNameError is returned when a group names a bus that cannot be opened.
type BusNameError struct {
	Group string
	Bus   string
	Err   error
}

func (err BusNameError) Error() string {
	if len(err.Bus) == 0 {
		return fmt.Sprintf("motor group %s has no bus", err.Group)
	}
	return fmt.Sprintf("motor group %s: unable to open bus %s: %v", err.Group, err.Bus, err.Err)
}

func (err BusNameError) Unwrap() error {
	return err.Err
}

type ConfigVersionError struct {
	Version    string
	Constraint string
}

func (err ConfigVersionError) Error() string {
	if len(err.Version) == 0 {
		err.Version = "UNKNOWN"
	}

	return fmt.Sprintf("incompatible config; version %s does not satisfy %s", err.Version, err.Constraint)
}

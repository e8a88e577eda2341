package main

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/CodedInternet/gomotor/onboard"
)

var errUsage = errors.New("wrong number of arguments, see help")

func newShell(device onboard.MotorDevice) *ishell.Shell {
	groupNames := func([]string) []string {
		return device.GroupNames()
	}

	shell := ishell.New()
	shell.Println("Motor development shell")

	shell.AddCmd(&ishell.Cmd{
		Name:      "current",
		Completer: groupNames,
		Help:      "current <group> <index> <value (-1 to 1)>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 3 {
				c.Err(errUsage)
				return
			}
			index, err := strconv.Atoi(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			value, err := strconv.ParseFloat(c.Args[2], 32)
			if err != nil {
				c.Err(err)
				return
			}

			if err := device.SetCurrent(c.Args[0], index, float32(value)); err != nil {
				c.Err(err)
				return
			}
			c.Printf("Motor %s/%d set to %.3f\n", c.Args[0], index, value)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "state",
		Completer: groupNames,
		Help:      "state [group]",
		Func: func(c *ishell.Context) {
			var state interface{}
			if len(c.Args) > 0 {
				group, err := device.GroupState(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				state = group
			} else {
				state = device.State()
			}

			out, _ := json.MarshalIndent(state, "", "  ")
			c.Println(string(out))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "zero the current of every motor",
		Func: func(c *ishell.Context) {
			device.Stop()
			c.Println("All motors stopped")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "hashpw",
		Help: "hashpw <password>, prints a hash for the operators list",
		Func: func(c *ishell.Context) {
			var password string
			if len(c.Args) >= 1 {
				password = c.Args[0]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			var user User
			if err := user.SetPassword([]byte(password)); err != nil {
				c.Err(err)
				return
			}
			c.Println(user.Password)
		},
	})

	return shell
}

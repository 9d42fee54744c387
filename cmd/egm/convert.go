package main

import (
	"fmt"

	"github.com/gwillem/egm/pkg/robot"
)

type ConvertCommand struct {
	Args struct {
		Rx float64 `positional-arg-name:"RX"`
		Ry float64 `positional-arg-name:"RY"`
		Rz float64 `positional-arg-name:"RZ"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ConvertCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Euler → quaternion → Euler"))
	fmt.Println(robot.ConversionReport(c.Args.Rx, c.Args.Ry, c.Args.Rz))
	return nil
}

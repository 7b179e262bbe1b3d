// Package led discovers the LEDs udev tagged for feedbackd and drives
// them through the sysfs LED class interface.
//
// Each LED is probed with a fixed chain of driver variants, most
// specific first. The resulting Registry ranks devices by priority and
// resolves color requests to the best matching device.
package led

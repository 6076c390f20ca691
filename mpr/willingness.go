/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mpr

// Willingness is a neighbor's 3-bit declared desire to relay traffic on
// behalf of others. 0 means never act as MPR, 7 means always, with
// 1..6 an ordinary sliding preference in between.
type Willingness uint8

const (
	WillingnessNever   Willingness = 0
	WillingnessLow     Willingness = 1
	WillingnessDefault Willingness = 3
	WillingnessHigh    Willingness = 6
	WillingnessAlways  Willingness = 7
)

// Always reports whether w forces unconditional MPR selection.
func (w Willingness) Always() bool {
	return w == WillingnessAlways
}

// Never reports whether w forbids MPR selection entirely.
func (w Willingness) Never() bool {
	return w == WillingnessNever
}

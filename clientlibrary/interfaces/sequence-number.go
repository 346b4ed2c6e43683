/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

package interfaces

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ExtendedSequenceNumber identifies a record's position within a shard
// lineage. It combines the Kinesis sequence number with a sub-sequence
// number used to address individual user records inside a KPL-aggregated
// record. The library treats it as an opaque ordered token.
type ExtendedSequenceNumber struct {
	// SequenceNumber is the Kinesis-assigned sequence number.
	// Nil means no position (no prior checkpoint).
	SequenceNumber *string

	// SubSequenceNumber addresses a user record within an aggregated record.
	SubSequenceNumber int64
}

// NewExtendedSequenceNumber returns an ExtendedSequenceNumber for a plain
// (non-aggregated) sequence number.
func NewExtendedSequenceNumber(sequenceNumber string) ExtendedSequenceNumber {
	return ExtendedSequenceNumber{SequenceNumber: aws.String(sequenceNumber)}
}

// Compare orders two extended sequence numbers within the same shard lineage.
// It returns a negative value if e < other, zero if equal, positive if e > other.
//
// Kinesis sequence numbers are unbounded decimal integers rendered as strings,
// so a longer string is always the larger number and equal-length strings
// compare lexicographically. An absent sequence number sorts before any
// present one. Ties are broken by the sub-sequence number.
func (e ExtendedSequenceNumber) Compare(other ExtendedSequenceNumber) int {
	switch {
	case e.SequenceNumber == nil && other.SequenceNumber == nil:
	case e.SequenceNumber == nil:
		return -1
	case other.SequenceNumber == nil:
		return 1
	default:
		a, b := aws.ToString(e.SequenceNumber), aws.ToString(other.SequenceNumber)
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a, b); c != 0 {
			return c
		}
	}

	switch {
	case e.SubSequenceNumber < other.SubSequenceNumber:
		return -1
	case e.SubSequenceNumber > other.SubSequenceNumber:
		return 1
	default:
		return 0
	}
}

// String renders the sequence number for logging. An absent sequence number
// renders as the empty string.
func (e ExtendedSequenceNumber) String() string {
	return aws.ToString(e.SequenceNumber)
}

// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import "github.com/kortschak/seedcore/alphabet"

// gcgChecksum computes the standard GCG checksum: the 1-indexed,
// mod-57-weighted sum of upper-cased residue byte values, reduced modulo
// 10000. The result always fits in 14 bits, matching the
// gcg_checksum<14> field spec.md's dataset format reserves for it.
func gcgChecksum(seq []byte) uint16 {
	var sum int
	for i, b := range seq {
		sum += (i%57 + 1) * int(alphabet.Unmask(b))
	}
	return uint16(sum % 10000)
}

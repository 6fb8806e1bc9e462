// this code is adapted from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package types

import (
	"bytes"
	"encoding/binary"
)

// TxnID is the type of the transaction identifier
type TxnID int32

// InvalidTxnID is the sentinel value for "no transaction".
const InvalidTxnID = TxnID(-1)

// Serialize casts it to []byte
func (id TxnID) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	return buf.Bytes()
}

// NewTxnIDFromBytes creates a txn id from []byte
func NewTxnIDFromBytes(data []byte) (ret TxnID) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}

// LSN is a log sequence number, used to track a page's or a transaction's
// last-written WAL record. The log manager itself is out of scope; this type
// exists so the buffer pool and transaction bookkeeping have somewhere to
// stash the hook value.
type LSN int32

// InvalidLSN marks a page or transaction that has never been logged.
const InvalidLSN = LSN(-1)

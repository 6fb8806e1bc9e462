package buffer

// FrameID indexes a slot in the buffer pool's fixed-size frame array. It is
// distinct from types.PageID: many page ids share the pool over time, but a
// frame id only ever ranges over [0, poolSize).
type FrameID int32

// Package fact defines the value model rules operate on.
//
// A fact is a graph of Values drawn from a closed set of shapes: scalars
// (Null, Bool, Int, Float, String, Time), atomic references (Bytes, Pattern,
// Opaque) and containers (List, Record, Map, Set). Containers are pointer
// types, so one node may be reachable along several paths and graphs may be
// cyclic. A nil Value stands for "undefined".
//
// fact imports nothing internal; snapshot, track and engine build on it.
//
// Key design constraints:
//   - Values are comparable with ==; containers compare by identity
//   - Decorators (see package track) implement Unwrapper and are looked
//     through by Resolve, Equal, MarshalCanonical and ToGo
//   - Canonical JSON follows RFC 8785 key ordering with NFC strings
package fact

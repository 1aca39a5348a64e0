// Package inspect contains the Cobra commands of the txlog CLI. They open
// logs of raw data directly from the data directory to inspect, append to or
// clear them.
//
// Data is printed as JSON lines. Each transaction carries its payload under
// one of data_json, data_text or data_b64, depending on what the bytes look
// like.
//
//	txlog --data-dir ./data append orders '{"item":"apple"}' '{"item":"pear"}' --batched
//	txlog --data-dir ./data commits orders --from 1
//	txlog --data-dir ./data dump orders --batched --from 2 --to 5
//	txlog --data-dir ./data stat orders --batched
//	txlog --data-dir ./data clear orders
//
// A log must be opened with the variant it was created with; --batched selects
// the batched variant. Only append creates a log; stat, dump and commits fail
// on a name holding no log.
package inspect

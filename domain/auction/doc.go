/*
Package auction implements the batch-auction clearing core.

Orders accumulate into per-(market, batch) aggregates until the batch
window elapses. Afterwards repeated bounded calls drive a checkpointed
state machine that discovers a uniform clearing tick per auction side
and allocates fills, including the pro-rata fraction at the margin.

The package is pure domain logic: no clocks, no identity checks, no
persistence. Those are injected by the service layer.
*/
package auction

package consensus

import "errors"

var errNoEligibleProducers = errors.New("consensus: no eligible producers for shard/height")

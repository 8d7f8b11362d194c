package world

const (
	MAP_SIZE         = 250 //Cells per side
	DROP_SPOT_MARGIN = 10  //Cells kept free along the map edge
	MAX_DROP_TRIES   = 50

	TRADE_DROP_RADIUS = 3 //Cells around the trade spot
)

package geocode

import "route-tracking-service/internal/domain"

type place struct {
	key   string
	coord domain.Coordinates
}

var schoolHub = domain.Coordinates{Lat: 23.5887, Lng: 58.4002}

// Curated Muscat gazetteer. Order matters: approximate matching returns
// the first entry whose key contains, or is contained in, the query.
var knownPlaces = []place{
	{"al khuwair", domain.Coordinates{Lat: 23.5861, Lng: 58.409}},
	{"al khuwair plaza", domain.Coordinates{Lat: 23.5867, Lng: 58.4118}},
	{"khuwair", domain.Coordinates{Lat: 23.5861, Lng: 58.409}},
	{"ruwi", domain.Coordinates{Lat: 23.5921, Lng: 58.5637}},
	{"ruwi center", domain.Coordinates{Lat: 23.5943, Lng: 58.5498}},
	{"muttrah", domain.Coordinates{Lat: 23.6176, Lng: 58.5933}},
	{"mutrah", domain.Coordinates{Lat: 23.6176, Lng: 58.5933}},
	{"qurum", domain.Coordinates{Lat: 23.6151, Lng: 58.4884}},
	{"qurm", domain.Coordinates{Lat: 23.6151, Lng: 58.4884}},
	{"al ghubra", domain.Coordinates{Lat: 23.586, Lng: 58.3844}},
	{"ghubra", domain.Coordinates{Lat: 23.586, Lng: 58.3844}},
	{"maidan al touba", domain.Coordinates{Lat: 23.5534, Lng: 58.6241}},
	{"madinat qaboos", domain.Coordinates{Lat: 23.5982, Lng: 58.4438}},
	{"almouj", domain.Coordinates{Lat: 23.6203, Lng: 58.2977}},
	{"al mouj", domain.Coordinates{Lat: 23.6203, Lng: 58.2977}},
	{"seeb", domain.Coordinates{Lat: 23.6741, Lng: 58.1896}},
	{"mawilah", domain.Coordinates{Lat: 23.5993, Lng: 58.1527}},
	{"mawilah south", domain.Coordinates{Lat: 23.5791, Lng: 58.1873}},
	{"muscat international airport", domain.Coordinates{Lat: 23.5931, Lng: 58.2844}},
	{"airport", domain.Coordinates{Lat: 23.5931, Lng: 58.2844}},
	{"oman avenues mall", domain.Coordinates{Lat: 23.5909, Lng: 58.4155}},
	{"boulevard", domain.Coordinates{Lat: 23.5875, Lng: 58.4211}},
	{"sultan qaboos university", domain.Coordinates{Lat: 23.5875, Lng: 58.168}},
	{"squ", domain.Coordinates{Lat: 23.5875, Lng: 58.168}},
	{"ismar", domain.Coordinates{Lat: 23.5844, Lng: 58.3979}},
	{"indian school", domain.Coordinates{Lat: 23.5888, Lng: 58.3996}},
	{"indian school seeb", domain.Coordinates{Lat: 23.6694, Lng: 58.1841}},
	{"indian school muscat", schoolHub},
	{"indian school al seeb", domain.Coordinates{Lat: 23.6694, Lng: 58.1841}},
	{"ism", schoolHub},
	{"school", schoolHub},
	{"school campus", schoolHub},
	{"eco school", schoolHub},
	{"eco campus", schoolHub},
	{"central school", schoolHub},
	{"student drop", schoolHub},
	{"grand mall", domain.Coordinates{Lat: 23.5854, Lng: 58.4125}},
	{"bawshar", domain.Coordinates{Lat: 23.5611, Lng: 58.4413}},
	{"bausher", domain.Coordinates{Lat: 23.5611, Lng: 58.4413}},
	{"gala", domain.Coordinates{Lat: 23.5466, Lng: 58.4231}},
	{"al amerat", domain.Coordinates{Lat: 23.5349, Lng: 58.5506}},
	{"amerat", domain.Coordinates{Lat: 23.5349, Lng: 58.5506}},
	{"wattayah", domain.Coordinates{Lat: 23.6042, Lng: 58.5543}},
	{"ras al hamra", domain.Coordinates{Lat: 23.6249, Lng: 58.4872}},
	{"ministry district", domain.Coordinates{Lat: 23.5893, Lng: 58.3961}},
	{"alkhuwair", domain.Coordinates{Lat: 23.5861, Lng: 58.409}},
	{"alkhoud", domain.Coordinates{Lat: 23.6036, Lng: 58.1682}},
	{"al khoud", domain.Coordinates{Lat: 23.6036, Lng: 58.1682}},
	{"al hail", domain.Coordinates{Lat: 23.6987, Lng: 58.1834}},
	{"al hail north", domain.Coordinates{Lat: 23.7041, Lng: 58.1925}},
	{"al hail south", domain.Coordinates{Lat: 23.6888, Lng: 58.1756}},
	{"mabela", domain.Coordinates{Lat: 23.6138, Lng: 58.0851}},
	{"mabellah", domain.Coordinates{Lat: 23.6138, Lng: 58.0851}},
	{"mabella", domain.Coordinates{Lat: 23.6138, Lng: 58.0851}},
	{"rusayl", domain.Coordinates{Lat: 23.5851, Lng: 58.1604}},
	{"rusayl industrial estate", domain.Coordinates{Lat: 23.5898, Lng: 58.1477}},
	{"ghala", domain.Coordinates{Lat: 23.5466, Lng: 58.4231}},
	{"aziba", domain.Coordinates{Lat: 23.6049, Lng: 58.3714}},
	{"al azaiba", domain.Coordinates{Lat: 23.6049, Lng: 58.3714}},
	{"al azaiba south", domain.Coordinates{Lat: 23.5986, Lng: 58.3731}},
	{"al azaiba north", domain.Coordinates{Lat: 23.6112, Lng: 58.3694}},
	{"ansaab", domain.Coordinates{Lat: 23.5238, Lng: 58.4296}},
	{"al ansab", domain.Coordinates{Lat: 23.5238, Lng: 58.4296}},
	{"bedia", domain.Coordinates{Lat: 23.5949, Lng: 58.445}},
	{"al khoudh", domain.Coordinates{Lat: 23.6036, Lng: 58.1682}},
}

// Plausible inland points handed out, in rotation, to names that cannot be resolved.
var fallbackRing = []domain.Coordinates{
	{Lat: 23.5975, Lng: 58.403},
	{Lat: 23.5832, Lng: 58.3891},
	{Lat: 23.5739, Lng: 58.4074},
	{Lat: 23.6121, Lng: 58.3379},
	{Lat: 23.5664, Lng: 58.3258},
	{Lat: 23.5542, Lng: 58.4146},
	{Lat: 23.6027, Lng: 58.4562},
	{Lat: 23.5452, Lng: 58.3914},
	{Lat: 23.5798, Lng: 58.3682},
	{Lat: 23.6148, Lng: 58.3285},
	{Lat: 23.6282, Lng: 58.5151},
	{Lat: 23.5603, Lng: 58.4234},
	{Lat: 23.6009, Lng: 58.3721},
	{Lat: 23.5859, Lng: 58.4099},
	{Lat: 23.5482, Lng: 58.4456},
	{Lat: 23.6214, Lng: 58.3012},
	{Lat: 23.5393, Lng: 58.3831},
	{Lat: 23.5725, Lng: 58.3298},
	{Lat: 23.5931, Lng: 58.2844},
}

package planner

import "fmt"

func getComposerPrompt(userQuery, packedJSON string) string {
	return fmt.Sprintf(`You are a professional travel planner.

TASK: Create **three unique trip plans** for the user's query below.
Each plan must include a different set of places (no repeated spot across plans).

IMPORTANT:
- Use the spots given in the JSON below as the primary pool.
- You MAY add a few extra nearby spots if needed, but try to reuse given spots.
- The order of spots within each day in the JSON is already optimized for distance.
  Try to follow that order as much as possible.

Follow these steps strictly:
1. Group nearby spots on the same day to minimize travel.
2. Start each day near the hotel and pick user-requested or nearby places.
3. Allocate realistic durations (1-2h for small spots, 3-5h for beaches, etc).
4. Each plan must be a **valid JSON object** matching the schema below.
5. Output an array containing 3 such plans: [plan1, plan2, plan3].

SCHEMA for each plan:
{
    "date": "YYYY-MM-DD",
    "duration_days": int,
    "itinerary_name": "2-3 word catchy itinerary name",
    "hotel": {
        "name": "Uv Bar",
        "lat": 15.5793064,
        "lng": 73.7388843,
        "rating": 3.9,
        "types": ["bar", "establishment", "night_club", "point_of_interest"],
        "open_now": true
    },
    "itinerary": {
        "Day 1": [{
            "spot_name": "Dream Beach",
            "lat": 15.0,
            "long": 73.9,
            "description": "very crisp description",
            "estimated_time_spent": "2 hours"
        }],
        "Day 2": [ ... ],
        "Day n": [ ... ]
    }
}

RULES:
- If the user mentions a number of days, plan **exactly that many days** (Day 1 ... Day N).
- If not mentioned, default to **3 days**.
- Each day must have **at least 3 activities** (morning, afternoon, evening) when possible.
- Each description should be **short (7-8 words max)**.
- Each plan should have **unique spots**, no overlap between plans.
- Use at least two of the given places whenever possible. For the remaining spots,
  you may use your internal knowledge with accurate latitude/longitude.
- The total estimated_time_spent per day must not exceed 9 hours.
- Output **pure JSON only**, no explanations or comments.

User request: %s
Optimized spots JSON: %s
Now think carefully and output only the final JSON, no explanations.`, userQuery, packedJSON)
}

func getRepairPrompt(badJSON string) string {
	return fmt.Sprintf(`The following JSON is invalid or incomplete and may contain markdown formatting.
Your job is to:
1. Remove any markdown code blocks
2. Fix structural issues (missing commas, brackets, quotes)
3. Ensure all strings are properly quoted
4. Do NOT change or reword any field values
5. Return strictly valid JSON without any markdown formatting or comments

JSON to fix:
%s`, badJSON)
}

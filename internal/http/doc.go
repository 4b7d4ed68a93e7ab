// Package http exposes the attendance engine as a JSON API.
//
// Every request must carry the acting user's ID in the X-Attendance-User
// header. The header is trusted; identity is established by the proxy in
// front of the service. Routes:
//   - GET /users, POST /users, DELETE /users/{id}, PUT /users/{id}/admin:
//     user mirroring. Listing, deletion and admin changes require an administrator.
//   - GET /meetings?period=ID | ?upcoming_days=N | ?date=YYYY-MM-DD&start=&end=&type=,
//     POST /meetings, GET /meetings/{id}, DELETE /meetings/{id},
//     GET /meetings/{id}/attendance: the event catalog and meeting rosters.
//   - GET /periods, POST /periods, GET /periods/{id}: reporting periods. The id
//     "active" selects the period containing today.
//   - POST /attendance logs by meeting_id or by date and time range,
//     PUT /attendance edits an existing record, POST /attendance/repair[?apply=true]
//     lists or fixes whole-day intervals.
//   - GET /excuse-requests[?reviewed=N], POST /excuse-requests (meeting_id
//     or date), POST /excuse-requests/{id}/approve, POST /excuse-requests/{id}/deny,
//     POST /excuses: the excuse workflow.
//   - GET /reports/{period}, GET /reports/{period}/users/{id}: compliance metrics.
//   - POST /imports?kind=attendance|outreach: CSV sheet upload.
//
// Errors are JSON objects with message, an error_code matching the services'
// error_kind log label, and per-field errors for validation failures.
package http

package rbac

// Permissions are "resource:action". Ownership checks happen in the services;
// these only gate which roles may attempt an action at all.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"profile:*",
		"enrollment:join",
		"enrollment:leave",
		"attempt:start",
		"attempt:complete",
		"attempt:view-own",
		"answer:submit",
		"submission:write",
	},
	RoleInstructor: {
		"profile:*",
		"course:create",
		"course:manage",
		"category:assign",
		"module:manage",
		"content:manage",
		"quiz:manage",
		"question:manage",
		"attempt:view-all",
		"answer:view-all",
		"answer:grade",
		"enrollment:manage",
		"assignment:manage",
		"submission:grade",
	},
	RoleAdmin: {
		"*",
	},
}
